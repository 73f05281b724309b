package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	accountingentity "github.com/harry123180/erp-backend/internal/accounting/entity"
	attachmententity "github.com/harry123180/erp-backend/internal/attachment/entity"
	identityentity "github.com/harry123180/erp-backend/internal/identity/entity"
	logisticsentity "github.com/harry123180/erp-backend/internal/logistics/entity"
	"github.com/harry123180/erp-backend/internal/middleware"
	procuremententity "github.com/harry123180/erp-backend/internal/procurement/entity"
	warehouseentity "github.com/harry123180/erp-backend/internal/warehouse/entity"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestSchema = "test_erp"
	JWTSecret  = "erp-backend-jwt-secret-2026"
)

// TestEnv holds test environment resources
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// projectRoot returns the project root directory by looking for go.mod
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// loadEnv loads .env from the project root
func loadEnv() {
	root := projectRoot()
	if root != "" {
		godotenv.Load(filepath.Join(root, ".env"))
	}
}

// SetupTestDB creates a test database connection using a dedicated test schema.
// Each test gets an isolated schema that is cleaned up after the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "erp")
	password := getEnv("DB_PASSWORD", "erp123")
	dbname := getEnv("DB_NAME", "erp_backend")

	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// Create a unique test schema for isolation
	schemaName := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000)

	// First: create schema using a temporary connection
	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database for schema setup: %v", err)
	}
	setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName))
	sqlSetup, _ := setupDB.DB()
	sqlSetup.Close()

	// Second: open connection with search_path in DSN so ALL pooled connections use test schema
	testDSN := fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)
	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Migrate test tables
	err = db.AutoMigrate(
		&identityentity.User{},
		&procuremententity.Supplier{},
		&procuremententity.Project{},
		&procuremententity.ProjectSupplierExpenditure{},
		&procuremententity.RequestOrder{},
		&procuremententity.RequestOrderItem{},
		&procuremententity.PurchaseOrder{},
		&procuremententity.PurchaseOrderItem{},
		&procuremententity.RemarksHistory{},
		&warehouseentity.Storage{},
		&warehouseentity.InventoryBatch{},
		&warehouseentity.InventoryBatchStorage{},
		&warehouseentity.InventoryMovement{},
		&logisticsentity.ShipmentConsolidation{},
		&accountingentity.PaymentRecord{},
		&attachmententity.Attachment{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	// Cleanup on test completion
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		// Reconnect to drop the schema
		cleanDB, cleanErr := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if cleanErr == nil {
			cleanDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
			sqlClean, _ := cleanDB.DB()
			if sqlClean != nil {
				sqlClean.Close()
			}
		}
	})

	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, username, name, role string) string {
	now := time.Now()
	claims := middleware.JWTClaims{
		UserID:   userID,
		Username: username,
		Name:     name,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "erp-backend",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			ID:        fmt.Sprintf("test-jti-%d", now.UnixNano()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// AdminToken returns a token for a default admin test user
func AdminToken() string {
	return GenerateTestToken("test-admin-001", "admin", "测试管理员", middleware.RoleAdmin)
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedSupplier creates a supplier in the test database
func SeedSupplier(t *testing.T, db *gorm.DB, code, name, region string) *procuremententity.Supplier {
	t.Helper()
	supplier := &procuremententity.Supplier{
		ID:          uuid.New().String()[:32],
		Code:        code,
		Name:        name,
		Region:      region,
		ContactName: "测试联络人",
		Phone:       "02-1234-5678",
		Active:      true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := db.Create(supplier).Error; err != nil {
		t.Fatalf("Failed to seed supplier: %v", err)
	}
	return supplier
}

// SeedStorage creates a storage slot in the test database
func SeedStorage(t *testing.T, db *gorm.DB, code string) *warehouseentity.Storage {
	t.Helper()
	storage, err := warehouseentity.ParseStorageCode(code)
	if err != nil {
		t.Fatalf("Failed to parse storage code %s: %v", code, err)
	}
	storage.ID = uuid.New().String()[:32]
	storage.Active = true
	storage.CreatedAt = time.Now()
	storage.UpdatedAt = time.Now()
	if err := db.Create(storage).Error; err != nil {
		t.Fatalf("Failed to seed storage: %v", err)
	}
	return storage
}

// SeedPurchaseOrder creates a purchase order with one item in the given purchase status
func SeedPurchaseOrder(t *testing.T, db *gorm.DB, poNo, supplierID, purchaseStatus string, qty, unitPrice float64) *procuremententity.PurchaseOrder {
	t.Helper()
	po := &procuremententity.PurchaseOrder{
		ID:             uuid.New().String()[:32],
		PONo:           poNo,
		SupplierID:     supplierID,
		PurchaseStatus: purchaseStatus,
		DeliveryStatus: procuremententity.DeliveryNotShipped,
		CreatedBy:      "test-admin-001",
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	itemStatus := procuremententity.POItemStatusPending
	if purchaseStatus == procuremententity.POStatusPurchased {
		itemStatus = procuremententity.POItemStatusPurchased
		now := time.Now()
		po.ConfirmedBy = &po.CreatedBy
		po.ConfirmedAt = &now
		po.StatusUpdateRequired = true
	}
	po.Items = []procuremententity.PurchaseOrderItem{{
		ID:            uuid.New().String()[:32],
		ItemCode:      "MAT-" + poNo,
		ItemName:      "测试物料",
		Specification: "M3x10",
		Quantity:      decimal.NewFromFloat(qty),
		Unit:          "pcs",
		UnitPrice:     decimal.NewFromFloat(unitPrice),
		ItemStatus:    itemStatus,
		SortOrder:     1,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}}
	po.RecalculateTotals()
	if err := db.Create(po).Error; err != nil {
		t.Fatalf("Failed to seed purchase order: %v", err)
	}
	return po
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
