package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/harry123180/erp-backend/internal/config"
	"github.com/harry123180/erp-backend/internal/identity/entity"
	"github.com/harry123180/erp-backend/internal/identity/repository"
	"github.com/harry123180/erp-backend/internal/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials 用户名或密码错误
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService 认证服务：登录、令牌签发与刷新
type AuthService struct {
	userRepo *repository.UserRepository
	jwtCfg   config.JWTConfig
	logger   *zap.Logger
}

func NewAuthService(userRepo *repository.UserRepository, jwtCfg config.JWTConfig, logger *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, jwtCfg: jwtCfg, logger: logger}
}

// TokenPair 访问令牌与刷新令牌
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LoginResult 登录结果
type LoginResult struct {
	User  *entity.User `json:"user"`
	Token TokenPair    `json:"token"`
}

// Login 用户名密码登录。禁用用户拒绝登录，成功后更新最后登录时间。
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Status != entity.UserStatusActive {
		return nil, fmt.Errorf("帐号已停用")
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Warn("更新最后登录时间失败", zap.String("user_id", user.ID), zap.Error(err))
	}

	return &LoginResult{User: user, Token: pair}, nil
}

// Refresh 以刷新令牌换发新令牌对
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims := &middleware.JWTClaims{}
	token, err := jwt.ParseWithClaims(refreshToken, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("刷新令牌无效或已过期")
	}
	if claims.Subject != "refresh" {
		return nil, fmt.Errorf("不是刷新令牌")
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user.Status != entity.UserStatusActive {
		return nil, fmt.Errorf("帐号已停用")
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// Me 取当前用户信息
func (s *AuthService) Me(ctx context.Context, userID string) (*entity.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

// issueTokenPair 签发访问/刷新令牌对
func (s *AuthService) issueTokenPair(user *entity.User) (TokenPair, error) {
	now := time.Now()
	accessExpire := now.Add(s.jwtCfg.AccessTokenExpire)

	accessClaims := middleware.JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		Name:     user.Name,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.jwtCfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpire),
			ID:        uuid.New().String(),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).
		SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return TokenPair{}, err
	}

	refreshClaims := middleware.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.jwtCfg.Issuer,
			Subject:   "refresh",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.RefreshTokenExpire)),
			ID:        uuid.New().String(),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).
		SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExpire,
	}, nil
}

// HashPassword 生成密码哈希（种子与用户管理使用）
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
