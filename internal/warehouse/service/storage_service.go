package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/harry123180/erp-backend/internal/cache"
	"github.com/harry123180/erp-backend/internal/warehouse/entity"
	"github.com/harry123180/erp-backend/internal/warehouse/repository"
)

const storageCachePrefix = "storage"

// StorageService 储位服务
type StorageService struct {
	storageRepo *repository.StorageRepository
	batchRepo   *repository.BatchRepository
	cache       *cache.Cache
}

func NewStorageService(repos *repository.Repositories, c *cache.Cache) *StorageService {
	return &StorageService{
		storageRepo: repos.Storage,
		batchRepo:   repos.Batch,
		cache:       c,
	}
}

// List 获取储位列表
func (s *StorageService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Storage, int64, error) {
	return s.storageRepo.FindAll(ctx, page, pageSize, filters)
}

// Get 获取储位详情
func (s *StorageService) Get(ctx context.Context, id string) (*entity.Storage, error) {
	var cached entity.Storage
	if s.cache.GetJSON(ctx, storageCachePrefix, id, &cached) {
		return &cached, nil
	}

	storage, err := s.storageRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, storageCachePrefix, id, storage, cache.MasterDataTTL)
	return storage, nil
}

// CreateStorageRequest 创建储位请求
type CreateStorageRequest struct {
	Area     string `json:"area" binding:"required"`
	Shelf    string `json:"shelf" binding:"required"`
	Floor    int    `json:"floor" binding:"required"`
	Position string `json:"position" binding:"required"`
	Slot     string `json:"slot" binding:"required"`
	Notes    string `json:"notes"`
}

// Create 创建储位。编码由分段组装并校验，重复编码拒绝。
func (s *StorageService) Create(ctx context.Context, req *CreateStorageRequest) (*entity.Storage, error) {
	code := entity.BuildStorageCode(req.Area, req.Shelf, req.Floor, req.Position, req.Slot)
	parsed, err := entity.ParseStorageCode(code)
	if err != nil {
		return nil, err
	}

	if existing, err := s.storageRepo.FindByCode(ctx, code); err == nil && existing != nil {
		return nil, fmt.Errorf("储位编码已存在: %s", code)
	}

	parsed.ID = uuid.New().String()[:32]
	parsed.Active = true
	parsed.Notes = req.Notes

	if err := s.storageRepo.Create(ctx, parsed); err != nil {
		return nil, err
	}

	s.cache.InvalidatePrefix(ctx, storageCachePrefix)
	return parsed, nil
}

// UpdateStorageRequest 更新储位请求。编码分段不可变更，仅启用与备注。
type UpdateStorageRequest struct {
	Active *bool   `json:"active"`
	Notes  *string `json:"notes"`
}

// Update 更新储位
func (s *StorageService) Update(ctx context.Context, id string, req *UpdateStorageRequest) (*entity.Storage, error) {
	storage, err := s.storageRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Active != nil {
		storage.Active = *req.Active
	}
	if req.Notes != nil {
		storage.Notes = *req.Notes
	}

	if err := s.storageRepo.Update(ctx, storage); err != nil {
		return nil, err
	}

	s.cache.InvalidatePrefix(ctx, storageCachePrefix)
	return storage, nil
}

// Balances 查询储位当前余额（按异动流水汇总，零余额不列出）
func (s *StorageService) Balances(ctx context.Context, id string) ([]repository.StorageBalance, error) {
	if _, err := s.storageRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.batchRepo.ListStorageBalances(ctx, id)
}
