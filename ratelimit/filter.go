package ratelimit

import (
	"strconv"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"

	"milorg-admin/apperr"
	"milorg-admin/response"
)

// Filter rejects requests from clients over their limit with 429. Clients
// are keyed by ips; a nil resolver keys on the remote host. Limiter backend
// failures are logged and the request is let through.
func Filter(l Limiter, burst int, ips *IPResolver, tr response.Translator, logger *zap.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		ip := ips.ClientIP(req.Request)
		allowed, err := l.Allow(req.Request.Context(), ip)
		if err != nil {
			logger.Error("Rate limiting failed", zap.Error(err), zap.String("ip", ip))
			chain.ProcessFilter(req, resp)
			return
		}
		resp.AddHeader("X-RateLimit-Limit", strconv.Itoa(burst))
		if !allowed {
			logger.Warn("Rate limit exceeded", zap.String("ip", ip), zap.String("path", req.Request.URL.Path))
			response.Error(req, resp, tr, apperr.ErrRateLimited)
			return
		}
		chain.ProcessFilter(req, resp)
	}
}
