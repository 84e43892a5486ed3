package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/retrato-app/retrato/database/repo/accounts"
	"github.com/retrato-app/retrato/internal/identity"
)

// ErrInvalidDigest 提交的标识符摘要格式不合法
var ErrInvalidDigest = errors.New("invalid identifier digest")

// Result 认证结果
type Result struct {
	OwnerID     string
	AccessToken string
	ExpiresAt   time.Time
}

// CpfService 标识符摘要认证服务
// 客户端在本地完成派生，服务端只接收 64 位十六进制摘要
type CpfService struct {
	accountsRepo *accounts.Repository
	tokens       *TokenManager
}

// NewCpfService 创建新的认证服务
func NewCpfService(accountsRepo *accounts.Repository, tokens *TokenManager) *CpfService {
	return &CpfService{
		accountsRepo: accountsRepo,
		tokens:       tokens,
	}
}

// Authenticate 校验摘要并签发会话令牌
// 首次出现的摘要会隐式注册账户
func (s *CpfService) Authenticate(digest string) (*Result, error) {
	if !identity.IsValidHash(digest) {
		return nil, ErrInvalidDigest
	}

	normalized := identity.NormalizeHash(digest)
	ownerID := normalized[:identity.OwnerIDLength]

	account, err := s.accountsRepo.GetOrCreateByHash(normalized, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}

	token, expiry, err := s.tokens.GenerateAccessToken(account.OwnerID)
	if err != nil {
		return nil, err
	}

	return &Result{
		OwnerID:     account.OwnerID,
		AccessToken: token,
		ExpiresAt:   expiry,
	}, nil
}
