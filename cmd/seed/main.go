package main

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/harry123180/erp-backend/internal/config"
	identityentity "github.com/harry123180/erp-backend/internal/identity/entity"
	identityservice "github.com/harry123180/erp-backend/internal/identity/service"
	procuremententity "github.com/harry123180/erp-backend/internal/procurement/entity"
	warehouseentity "github.com/harry123180/erp-backend/internal/warehouse/entity"
)

// 初始用户：各角色一名，密码与用户名相同，首次登录后应修改
var seedUsers = []struct {
	Username string
	Name     string
	Role     string
}{
	{"admin", "系统管理员", "admin"},
	{"proc01", "采购专员", "procurement"},
	{"wh01", "仓管员", "warehouse"},
	{"log01", "物流专员", "logistics"},
	{"acct01", "会计", "accountant"},
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	ctx := context.Background()

	for _, u := range seedUsers {
		var count int64
		db.WithContext(ctx).Model(&identityentity.User{}).
			Where("username = ?", u.Username).Count(&count)
		if count > 0 {
			continue
		}

		hash, err := identityservice.HashPassword(u.Username)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		user := &identityentity.User{
			ID:           uuid.New().String()[:32],
			Username:     u.Username,
			Name:         u.Name,
			PasswordHash: hash,
			Role:         u.Role,
			Status:       identityentity.UserStatusActive,
		}
		if err := db.WithContext(ctx).Create(user).Error; err != nil {
			log.Fatalf("create user %s: %v", u.Username, err)
		}
		log.Printf("created user %s (%s)", u.Username, u.Role)
	}

	seedSuppliers(ctx, db)
	seedStorages(ctx, db)

	log.Println("seed done")
}

func seedSuppliers(ctx context.Context, db *gorm.DB) {
	suppliers := []procuremententity.Supplier{
		{Code: "SUP001", Name: "台北精密五金有限公司", Region: procuremententity.RegionDomestic},
		{Code: "SUP002", Name: "深圳华强电子科技", Region: procuremententity.RegionInternational},
	}
	for _, s := range suppliers {
		var count int64
		db.WithContext(ctx).Model(&procuremententity.Supplier{}).
			Where("code = ?", s.Code).Count(&count)
		if count > 0 {
			continue
		}
		s.ID = uuid.New().String()[:32]
		s.Active = true
		if err := db.WithContext(ctx).Create(&s).Error; err != nil {
			log.Fatalf("create supplier %s: %v", s.Code, err)
		}
		log.Printf("created supplier %s", s.Code)
	}
}

func seedStorages(ctx context.Context, db *gorm.DB) {
	positions := []string{warehouseentity.PositionFront, warehouseentity.PositionBack}
	slots := []string{warehouseentity.SlotLeft, warehouseentity.SlotMiddle, warehouseentity.SlotRight}

	for floor := 1; floor <= 2; floor++ {
		for _, pos := range positions {
			for _, slot := range slots {
				code := warehouseentity.BuildStorageCode("Z1", "A", floor, pos, slot)
				var count int64
				db.WithContext(ctx).Model(&warehouseentity.Storage{}).
					Where("code = ?", code).Count(&count)
				if count > 0 {
					continue
				}
				storage, err := warehouseentity.ParseStorageCode(code)
				if err != nil {
					log.Fatalf("parse storage code %s: %v", code, err)
				}
				storage.ID = uuid.New().String()[:32]
				storage.Active = true
				if err := db.WithContext(ctx).Create(storage).Error; err != nil {
					log.Fatalf("create storage %s: %v", code, err)
				}
			}
		}
	}
	log.Println("created storages Z1-A")
}
