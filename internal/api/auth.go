package api

import (
	"net/http"
	"strings"
)

type Principal struct {
	Tenant  string
	Role    string // admin, dispatcher, viewer
	Subject string
}

// getPrincipal extracts tenant and role from a bearer token when present,
// else from headers for dev use.
func (s *Server) getPrincipal(r *http.Request) Principal {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		if c, err := s.Auth.Verify(tok); err == nil {
			p := Principal{Tenant: c.Tenant, Role: c.Role, Subject: c.Subject}
			if p.Tenant == "" {
				p.Tenant = "t_demo"
			}
			if p.Role == "" {
				p.Role = "viewer"
			}
			return p
		}
	}
	tenant := r.Header.Get("X-Tenant-Id")
	if tenant == "" {
		tenant = "t_demo"
	}
	role := r.Header.Get("X-Role")
	if role == "" {
		role = "admin"
	}
	return Principal{Tenant: tenant, Role: role}
}

// CanDispatch reports whether the principal may run optimizations and
// manage zones and subscriptions.
func (p Principal) CanDispatch() bool { return p.Role == "admin" || p.Role == "dispatcher" }
