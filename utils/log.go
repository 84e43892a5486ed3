package utils

import (
	"log"
	"strings"
	"unicode"

	"github.com/retrato-app/retrato/config"
)

// SanitizeLogMessage 过滤不可打印字符，防止日志注入
func SanitizeLogMessage(msg string) string {
	var sb strings.Builder
	for _, r := range msg {
		if r == 10 || r == 9 {
			sb.WriteRune(r)
		} else if unicode.IsPrint(r) || unicode.IsGraphic(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// SanitizeLogToken 令牌过长时截断后再清洗
func SanitizeLogToken(token string) string {
	if len(token) > 64 {
		token = token[:64] + "..."
	}
	return SanitizeLogMessage(token)
}

// LogIfDevf 仅开发版本输出的调试日志
func LogIfDevf(format string, v ...interface{}) {
	if config.IsDevelopment() {
		log.Printf(format, v...)
	}
}
