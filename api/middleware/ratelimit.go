package middleware

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/retrato-app/retrato/api/common"
	"golang.org/x/time/rate"
)

// visitor 单个来源 IP 的令牌桶及最近活跃时间
type visitor struct {
	bucket   *rate.Limiter
	lastSeen atomic.Int64 // unix 纳秒
}

// IPRateLimiter 按来源 IP 限流。
// 认证、API、分享代理各持一个实例，阈值互不影响。
type IPRateLimiter struct {
	rps      float64
	burst    int
	staleTTL time.Duration
	visitors sync.Map
	stop     chan struct{}
}

// NewIPRateLimiter 创建限流器并启动陈旧条目回收
func NewIPRateLimiter(rps float64, burst int, staleTTL time.Duration) *IPRateLimiter {
	rl := &IPRateLimiter{
		rps:      rps,
		burst:    burst,
		staleTTL: staleTTL,
		stop:     make(chan struct{}),
	}
	go rl.reapStale()
	return rl
}

// Middleware 返回 gin 中间件
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		v := rl.visitorFor(clientIP(c))
		v.lastSeen.Store(time.Now().UnixNano())

		if !v.bucket.Allow() {
			common.RespondErrorAbort(c, http.StatusTooManyRequests, "Too many requests")
			return
		}

		c.Next()
	}
}

// StopCleanup 停止后台回收
func (rl *IPRateLimiter) StopCleanup() {
	close(rl.stop)
}

func (rl *IPRateLimiter) visitorFor(ip string) *visitor {
	// 热路径先 Load，未命中才构造令牌桶
	if val, ok := rl.visitors.Load(ip); ok {
		return val.(*visitor)
	}
	val, _ := rl.visitors.LoadOrStore(ip, &visitor{
		bucket: rate.NewLimiter(rate.Limit(rl.rps), rl.burst),
	})
	return val.(*visitor)
}

func (rl *IPRateLimiter) reapStale() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.staleTTL).UnixNano()
			rl.visitors.Range(func(key, value interface{}) bool {
				if value.(*visitor).lastSeen.Load() < cutoff {
					rl.visitors.Delete(key)
				}
				return true
			})
		case <-rl.stop:
			return
		}
	}
}

// clientIP 取客户端真实 IP，优先代理头
func clientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}
