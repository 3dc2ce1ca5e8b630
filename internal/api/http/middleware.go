package http

import (
	"sync"

	"github.com/kataras/iris/v12"
	"golang.org/x/time/rate"
	"go.uber.org/zap"
)

// RateLimiter 按客户端地址限流
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(rateLimit float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rateLimit),
		burst:    burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}

	return limiter
}

func (rl *RateLimiter) Handler() iris.Handler {
	return func(ctx iris.Context) {
		if !rl.getLimiter(ctx.RemoteAddr()).Allow() {
			zap.L().Debug("请求被限流", zap.String("client_ip", ctx.RemoteAddr()))

			ctx.StatusCode(iris.StatusTooManyRequests)
			ctx.JSON(iris.Map{
				"error": "rate limited",
			})
			return
		}

		ctx.Next()
	}
}
