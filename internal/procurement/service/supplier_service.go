package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harry123180/erp-backend/internal/cache"
	"github.com/harry123180/erp-backend/internal/procurement/entity"
	"github.com/harry123180/erp-backend/internal/procurement/repository"
)

// 供应商缓存前缀
const supplierCachePrefix = "supplier"

// SupplierService 供应商服务
type SupplierService struct {
	repo  *repository.SupplierRepository
	cache *cache.Cache
}

func NewSupplierService(repo *repository.SupplierRepository, c *cache.Cache) *SupplierService {
	return &SupplierService{repo: repo, cache: c}
}

// List 获取供应商列表
func (s *SupplierService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Supplier, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// Get 获取供应商详情（读缓存，主数据TTL 30分钟）
func (s *SupplierService) Get(ctx context.Context, id string) (*entity.Supplier, error) {
	var cached entity.Supplier
	if s.cache.GetJSON(ctx, supplierCachePrefix, id, &cached) {
		return &cached, nil
	}

	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, supplierCachePrefix, id, supplier, cache.MasterDataTTL)
	return supplier, nil
}

// CreateSupplierRequest 创建供应商请求
type CreateSupplierRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Region       string `json:"region" binding:"required,oneof=domestic international"`
	ContactName  string `json:"contact_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	TaxID        string `json:"tax_id"`
	BankName     string `json:"bank_name"`
	BankAccount  string `json:"bank_account"`
	PaymentTerms string `json:"payment_terms"`
	Notes        string `json:"notes"`
}

// Create 创建供应商
func (s *SupplierService) Create(ctx context.Context, req *CreateSupplierRequest) (*entity.Supplier, error) {
	if existing, err := s.repo.FindByCode(ctx, req.Code); err == nil && existing != nil {
		return nil, fmt.Errorf("供应商编码已存在: %s", req.Code)
	}

	supplier := &entity.Supplier{
		ID:           uuid.New().String()[:32],
		Code:         req.Code,
		Name:         req.Name,
		Region:       req.Region,
		ContactName:  req.ContactName,
		Phone:        req.Phone,
		Email:        req.Email,
		Address:      req.Address,
		TaxID:        req.TaxID,
		BankName:     req.BankName,
		BankAccount:  req.BankAccount,
		PaymentTerms: req.PaymentTerms,
		Active:       true,
		Notes:        req.Notes,
	}

	if err := s.repo.Create(ctx, supplier); err != nil {
		return nil, err
	}

	s.cache.InvalidatePrefix(ctx, supplierCachePrefix)
	return supplier, nil
}

// UpdateSupplierRequest 更新供应商请求
type UpdateSupplierRequest struct {
	Name         *string `json:"name"`
	ContactName  *string `json:"contact_name"`
	Phone        *string `json:"phone"`
	Email        *string `json:"email"`
	Address      *string `json:"address"`
	TaxID        *string `json:"tax_id"`
	BankName     *string `json:"bank_name"`
	BankAccount  *string `json:"bank_account"`
	PaymentTerms *string `json:"payment_terms"`
	Active       *bool   `json:"active"`
	Notes        *string `json:"notes"`
}

// Update 更新供应商。区域不可变更：已存在订单的状态机依赖区域。
func (s *SupplierService) Update(ctx context.Context, id string, req *UpdateSupplierRequest) (*entity.Supplier, error) {
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		supplier.Name = *req.Name
	}
	if req.ContactName != nil {
		supplier.ContactName = *req.ContactName
	}
	if req.Phone != nil {
		supplier.Phone = *req.Phone
	}
	if req.Email != nil {
		supplier.Email = *req.Email
	}
	if req.Address != nil {
		supplier.Address = *req.Address
	}
	if req.TaxID != nil {
		supplier.TaxID = *req.TaxID
	}
	if req.BankName != nil {
		supplier.BankName = *req.BankName
	}
	if req.BankAccount != nil {
		supplier.BankAccount = *req.BankAccount
	}
	if req.PaymentTerms != nil {
		supplier.PaymentTerms = *req.PaymentTerms
	}
	if req.Active != nil {
		supplier.Active = *req.Active
	}
	if req.Notes != nil {
		supplier.Notes = *req.Notes
	}
	supplier.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, err
	}

	s.cache.InvalidatePrefix(ctx, supplierCachePrefix)
	return supplier, nil
}
