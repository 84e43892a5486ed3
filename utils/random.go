package utils

import (
	"strings"

	"github.com/google/uuid"
)

// RandomSuffix 对象名用的短随机后缀
func RandomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
