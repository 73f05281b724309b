package middleware_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/harry123180/erp-backend/internal/middleware"
	"github.com/harry123180/erp-backend/internal/testutil"
)

func setupRoleRouter() *gin.Engine {
	r := testutil.SetupRouter()
	api := r.Group("/api/v1", middleware.JWTAuth(testutil.JWTSecret))
	api.GET("/open", func(c *gin.Context) { c.Status(http.StatusOK) })
	api.GET("/warehouse-only", middleware.RequireRole(middleware.RoleWarehouse),
		func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestJWTAuth(t *testing.T) {
	r := setupRoleRouter()

	// 无令牌
	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/open", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	// 伪造令牌
	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/open", nil, "not-a-token")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", w.Code)
	}

	// 合法令牌
	token := testutil.GenerateTestToken("u1", "wh01", "仓管员", middleware.RoleWarehouse)
	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/open", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestJWTAuthRejectsRefreshToken(t *testing.T) {
	r := setupRoleRouter()

	claims := middleware.JWTClaims{
		UserID: "u1",
		Role:   middleware.RoleWarehouse,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "refresh",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(testutil.JWTSecret))
	if err != nil {
		t.Fatalf("sign refresh token: %v", err)
	}

	// 刷新令牌只能用于换发，不能当访问令牌
	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/open", nil, token)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestJWTAuthQueryTokenFallback(t *testing.T) {
	r := setupRoleRouter()
	token := testutil.GenerateTestToken("u1", "wh01", "仓管员", middleware.RoleWarehouse)

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/open?token="+token, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with query token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	r := setupRoleRouter()

	// 角色匹配
	token := testutil.GenerateTestToken("u1", "wh01", "仓管员", middleware.RoleWarehouse)
	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/warehouse-only", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for warehouse role, got %d", w.Code)
	}

	// 角色不符
	token = testutil.GenerateTestToken("u2", "acct01", "会计", middleware.RoleAccountant)
	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/warehouse-only", nil, token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for accountant role, got %d", w.Code)
	}

	// admin放行
	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/warehouse-only", nil, testutil.AdminToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", w.Code)
	}
}
