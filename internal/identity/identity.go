package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const (
	// CPF 清洗后必须恰好 11 位数字
	cpfDigitCount = 11

	// HashLength 完整哈希的十六进制长度
	HashLength = 64

	// OwnerIDLength 公开标识符的十六进制长度
	OwnerIDLength = 16
)

// ErrInvalidFormat 输入格式非法（清洗后位数不符）
var ErrInvalidFormat = errors.New("invalid identifier format")

// Identity 派生结果
// FullHash 只用于服务端查找/建档，OwnerID 用于其后的一切场景
type Identity struct {
	FullHash string
	OwnerID  string
}

// Derive 从原始证件号派生匿名身份
// 先剥离所有非数字字符，位数不符时直接失败，不做任何哈希运算。
// 对相同数字序列的输入结果恒定；原始证件号不出现在任何输出中。
func Derive(rawID string) (*Identity, error) {
	digits := stripNonDigits(rawID)
	if len(digits) != cpfDigitCount {
		return nil, ErrInvalidFormat
	}

	sum := sha256.Sum256([]byte(digits))
	fullHash := hex.EncodeToString(sum[:])

	return &Identity{
		FullHash: fullHash,
		OwnerID:  fullHash[:OwnerIDLength],
	}, nil
}

// IsValidHash 哈希必须恰好 64 位十六进制（大小写不敏感）
func IsValidHash(s string) bool {
	return len(s) == HashLength && isHex(s)
}

// IsValidOwnerID 标识符必须恰好 16 位十六进制（大小写不敏感）
func IsValidOwnerID(s string) bool {
	return len(s) == OwnerIDLength && isHex(s)
}

// NormalizeHash 统一转为小写，便于作为查找键
func NormalizeHash(s string) string {
	return strings.ToLower(s)
}

func stripNonDigits(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
