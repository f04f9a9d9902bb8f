package controllers

import (
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"milorg-admin/ratelimit"
)

const (
	requestIDHeader    = "X-Request-ID"
	requestIDAttribute = "request_id"
)

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	id := req.HeaderParameter(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	req.SetAttribute(requestIDAttribute, id)
	resp.AddHeader(requestIDHeader, id)
	chain.ProcessFilter(req, resp)
}

func RequestIDFrom(req *restful.Request) string {
	id, _ := req.Attribute(requestIDAttribute).(string)
	return id
}

// RequestLogger logs every request after it has been handled.
func RequestLogger(logger *zap.Logger, ips *ratelimit.IPResolver) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		startTime := time.Now()

		chain.ProcessFilter(req, resp)

		logger.Info("Request",
			zap.String("client_ip", ips.ClientIP(req.Request)),
			zap.String("method", req.Request.Method),
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("latency", time.Since(startTime)),
			zap.String("user_agent", req.Request.UserAgent()),
			zap.String("path", req.Request.URL.Path),
			zap.String("request_id", RequestIDFrom(req)),
		)
	}
}
