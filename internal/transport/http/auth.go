package http

import (
	"net/http"
	"strings"

	"gauntlet-service/internal/domain"
)

// Authenticator resolves the caller's identity from a request. Session
// management and credential storage live in a separate service; this layer
// only consumes its result.
type Authenticator interface {
	Identify(r *http.Request) (domain.Identity, error)
}

// HeaderAuthenticator trusts identity headers injected by the auth proxy in
// front of this service.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Identify(r *http.Request) (domain.Identity, error) {
	id := r.Header.Get("X-Participant-ID")
	if id == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	name := r.Header.Get("X-Participant-Name")
	if name == "" {
		name = id
	}
	return domain.Identity{
		ID:          id,
		DisplayName: name,
		Admin:       r.Header.Get("X-Participant-Admin") == "true",
	}, nil
}

// clientMeta extracts the audit hints recorded with every attempt.
func clientMeta(r *http.Request) domain.ClientMeta {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		ip = strings.TrimSpace(strings.SplitN(ip, ",", 2)[0])
	}
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	if ip == "" {
		ip = "unknown"
	}
	ua := r.Header.Get("User-Agent")
	if ua == "" {
		ua = "unknown"
	}
	return domain.ClientMeta{IP: ip, UserAgent: ua}
}
