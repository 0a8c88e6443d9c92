package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"yesno-backend/config"
	"yesno-backend/models"
	"yesno-backend/repository"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceUserID 服务角色主体的用户ID
const ServiceUserID = "service_role"

var (
	// ErrMissingToken 请求未携带凭证
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken 凭证无法验证
	ErrInvalidToken = errors.New("invalid token")
)

// Authenticator 验证用户JWT与服务角色密钥
type Authenticator struct {
	secret     []byte
	serviceKey string
	bootstrap  map[string]bool
	store      *repository.Store
}

// NewAuthenticator 创建认证器
func NewAuthenticator(cfg config.AuthConfig, store *repository.Store) *Authenticator {
	bootstrap := make(map[string]bool, len(cfg.BootstrapAdmins))
	for _, id := range cfg.BootstrapAdmins {
		if id = strings.TrimSpace(id); id != "" {
			bootstrap[id] = true
		}
	}
	return &Authenticator{
		secret:     []byte(cfg.JWTSecret),
		serviceKey: cfg.ServiceRoleKey,
		bootstrap:  bootstrap,
		store:      store,
	}
}

// BearerToken 从 Authorization 头提取令牌，scheme 不区分大小写
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate 验证令牌并返回主体，首次出现的用户会创建资料
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*models.Principal, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if a.serviceKey != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.serviceKey)) == 1 {
		return &models.Principal{UserID: ServiceUserID, IsAdmin: true, Service: true}, nil
	}

	userID, err := a.parse(token)
	if err != nil {
		return nil, err
	}
	profile, err := a.store.EnsureProfile(ctx, userID, a.bootstrap[userID])
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	return &models.Principal{UserID: profile.ID, IsAdmin: profile.IsAdmin}, nil
}

func (a *Authenticator) parse(tokenString string) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// IssueToken 签发 HS256 用户令牌
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
