package middleware

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"yesno-backend/auth"
	"yesno-backend/cache"
	"yesno-backend/logging"
	"yesno-backend/metrics"

	"github.com/gin-gonic/gin"
)

// RateLimitStats 限流统计
type RateLimitStats struct {
	Enabled  bool  `json:"enabled"`
	Total    int64 `json:"total"`
	Allowed  int64 `json:"allowed"`
	Rejected int64 `json:"rejected"`
}

// RateLimit 全局加用户两级限流
type RateLimit struct {
	limiter *cache.UserRateLimiter

	total    atomic.Int64
	allowed  atomic.Int64
	rejected atomic.Int64
}

// NewRateLimit limiter 为 nil 时中间件直接放行
func NewRateLimit(limiter *cache.UserRateLimiter) *RateLimit {
	return &RateLimit{limiter: limiter}
}

// Handler 限流中间件，放在认证中间件之后以便按用户计数；匿名请求按客户端IP计数。
// 限流器后端出错时放行。
func (r *RateLimit) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.limiter == nil {
			c.Next()
			return
		}
		r.total.Add(1)

		key := "ip:" + c.ClientIP()
		if p := auth.PrincipalFrom(c); p != nil {
			key = "user:" + p.UserID
		}

		scope, err := r.limiter.AllowUser(c.Request.Context(), key)
		if err != nil {
			logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("限流检查失败，放行请求")
		}
		if scope != cache.ScopeNone {
			r.rejected.Add(1)
			metrics.RateLimited.WithLabelValues(string(scope)).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		r.allowed.Add(1)
		c.Next()
	}
}

// Stats 限流统计快照
func (r *RateLimit) Stats() RateLimitStats {
	return RateLimitStats{
		Enabled:  r.limiter != nil,
		Total:    r.total.Load(),
		Allowed:  r.allowed.Load(),
		Rejected: r.rejected.Load(),
	}
}

// RunCleanup 定期清理进程内限流器的过期条目，直到 ctx 取消
func (r *RateLimit) RunCleanup(ctx context.Context, interval time.Duration) {
	if r.limiter == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.limiter.Cleanup()
		}
	}
}
