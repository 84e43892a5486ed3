package sharelink

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/retrato-app/retrato/internal/identity"
)

// ErrInvalidToken 令牌无法解码（非法 base64 或缺少分隔符）
var ErrInvalidToken = errors.New("invalid share token")

const separator = "-"

// Encode 将 (所有者标识符, 文件名) 编码为 URL 安全的不透明令牌。
// 编码是确定性的：同一组输入总是产生同一个令牌，读取侧可以直接重新
// 生成用于展示，无需回表查询。
func Encode(ownerID, fileName string) string {
	raw := ownerID + separator + fileName
	encoded := base64.StdEncoding.EncodeToString([]byte(raw))

	// 替换 URL 不安全字符并去掉填充
	encoded = strings.ReplaceAll(encoded, "+", "-")
	encoded = strings.ReplaceAll(encoded, "/", "_")
	return strings.TrimRight(encoded, "=")
}

// Decode 解码令牌，返回所有者引用与文件名。
// 左侧符合 16 位十六进制形状的视为派生标识符；否则按旧版原始值处理
// （兼容历史令牌），文件名为首个分隔符之后的全部内容，含连字符的文件
// 名不受影响。任何阶段失败都返回 ErrInvalidToken，绝不向外抛出。
func Decode(token string) (identity.OwnerRef, string, error) {
	if token == "" {
		return identity.OwnerRef{}, "", ErrInvalidToken
	}

	data, err := decodeBase64(token)
	if err != nil {
		return identity.OwnerRef{}, "", ErrInvalidToken
	}

	parts := strings.SplitN(string(data), separator, 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return identity.OwnerRef{}, "", ErrInvalidToken
	}

	return identity.ClassifyOwner(parts[0]), parts[1], nil
}

// decodeBase64 还原 URL 安全替换并补齐填充后解码
func decodeBase64(token string) ([]byte, error) {
	s := strings.ReplaceAll(token, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")

	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}
	return base64.StdEncoding.DecodeString(s)
}
