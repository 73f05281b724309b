package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/harry123180/erp-backend/internal/cache"
	"github.com/harry123180/erp-backend/internal/procurement/entity"
	"github.com/harry123180/erp-backend/internal/procurement/repository"
	"github.com/shopspring/decimal"
)

const projectCachePrefix = "project"

// ProjectService 专案服务
type ProjectService struct {
	repo        *repository.ProjectRepository
	cache       *cache.Cache
	expenditure *ExpenditureWorker
}

func NewProjectService(repo *repository.ProjectRepository, c *cache.Cache, expenditure *ExpenditureWorker) *ProjectService {
	return &ProjectService{repo: repo, cache: c, expenditure: expenditure}
}

// List 获取专案列表
func (s *ProjectService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Project, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// Get 获取专案详情（含按供应商支出）
func (s *ProjectService) Get(ctx context.Context, id string) (*entity.Project, error) {
	return s.repo.FindByID(ctx, id)
}

// CreateProjectRequest 创建专案请求
type CreateProjectRequest struct {
	Code    string          `json:"code" binding:"required"`
	Name    string          `json:"name" binding:"required"`
	OwnerID string          `json:"owner_id"`
	Budget  decimal.Decimal `json:"budget"`
	Notes   string          `json:"notes"`
}

// Create 创建专案
func (s *ProjectService) Create(ctx context.Context, req *CreateProjectRequest) (*entity.Project, error) {
	project := &entity.Project{
		ID:      uuid.New().String()[:32],
		Code:    req.Code,
		Name:    req.Name,
		OwnerID: req.OwnerID,
		Budget:  req.Budget.Round(0),
		Active:  true,
		Notes:   req.Notes,
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}

	s.cache.InvalidatePrefix(ctx, projectCachePrefix)
	return project, nil
}

// UpdateProjectRequest 更新专案请求
type UpdateProjectRequest struct {
	Name   *string          `json:"name"`
	Budget *decimal.Decimal `json:"budget"`
	Active *bool            `json:"active"`
	Notes  *string          `json:"notes"`
}

// Update 更新专案
func (s *ProjectService) Update(ctx context.Context, id string, req *UpdateProjectRequest) (*entity.Project, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Budget != nil {
		if req.Budget.IsNegative() {
			return nil, fmt.Errorf("预算不可为负数")
		}
		project.Budget = req.Budget.Round(0)
	}
	if req.Active != nil {
		project.Active = *req.Active
	}
	if req.Notes != nil {
		project.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, err
	}

	s.cache.InvalidatePrefix(ctx, projectCachePrefix)
	return project, nil
}

// Recalculate 手动触发专案支出重算
func (s *ProjectService) Recalculate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	s.expenditure.Enqueue(id)
	return nil
}
