package api

import "github.com/okian/cutline/pkg/logger"

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxRequestBytes bounds request bodies.
func WithMaxRequestBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRequestBytes = n
		}
	}
}

// WithLogger sets the logger used for route registration and access logs.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
