package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// rateLimitScans is a huma middleware that limits the public scan routes
// per client IP. It answers 429 RATE_LIMITED with Retry-After when the
// bucket is empty.
func (s *Server) rateLimitScans(ctx huma.Context, next func(huma.Context)) {
	if s.scanLimiter == nil {
		next(ctx)
		return
	}

	key := clientIP(ctx.RemoteAddr())
	ok, wait := s.scanLimiter.Check(key)
	if ok {
		next(ctx)
		return
	}

	s.logger.Warn("Rate limit exceeded",
		"ip", key,
		"path", ctx.URL().Path,
		"retry_after", wait,
	)
	ctx.SetHeader("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	//nolint:errcheck // Nothing to do if the client went away.
	_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "Too many requests. Please try again later.")
}
