package api

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// authenticateRequest validates the Authorization header and returns the user ID.
func (s *Server) authenticateRequest(_ context.Context, authHeader string) (string, error) {
	if authHeader == "" {
		return "", huma.Error401Unauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", huma.Error401Unauthorized("Invalid authorization header format")
	}

	return s.verifyToken(parts[1])
}

func (s *Server) verifyToken(token string) (string, error) {
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return "", huma.Error401Unauthorized("Invalid or expired token")
	}
	return claims.UserID, nil
}

// authenticateStream authenticates the live feed. EventSource cannot set
// headers, so a ?token= query parameter is accepted as well.
func (s *Server) authenticateStream(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return s.authenticateRequest(r.Context(), header)
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return s.verifyToken(token)
	}
	return "", huma.Error401Unauthorized("Missing authorization header")
}

// clientIP strips the port from a remote address. RealIP has already
// applied X-Forwarded-For and X-Real-IP by the time handlers run.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
