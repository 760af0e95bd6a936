// Package guard gates protected views on the session state.
package guard

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/metrics"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/session"
)

// DefaultLoginPath is where unauthenticated navigations are sent.
const DefaultLoginPath = "/login"

// Access classifies a route.
type Access int

const (
	Public Access = iota
	Protected
)

// Decision is the outcome for one navigation to a protected route.
type Decision int

const (
	Allow Decision = iota
	Redirect
	Pending
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	}
	return "pending"
}

// StateReader is the part of the session store the guard needs.
type StateReader interface {
	State() session.State
}

// Decide maps a session state to a decision. Only an authenticated session
// is admitted; a session that is not hydrated yet is neither admitted nor
// redirected.
func Decide(state session.State) Decision {
	switch state {
	case session.StateAuthenticated:
		return Allow
	case session.StateAnonymous:
		return Redirect
	}
	return Pending
}

type Guard struct {
	sessions  StateReader
	loginPath string
}

func New(sessions StateReader, loginPath string) *Guard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return &Guard{sessions: sessions, loginPath: loginPath}
}

// Protect is a mux middleware. The decision is taken on every request and
// next is only reached on Allow.
func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := Decide(g.sessions.State())
		metrics.Inc(metrics.GuardDecisionsTotal, prometheus.Labels{"decision": decision.String()}, 1)

		switch decision {
		case Allow:
			next.ServeHTTP(w, r)
		case Redirect:
			log.Info().Str("path", r.URL.Path).Msg("Protected view requested without session, redirecting to login")
			w.Header().Set("Cache-Control", "no-store")
			http.Redirect(w, r, g.loginPath, http.StatusFound)
		default:
			log.Warn().Str("path", r.URL.Path).Msg("Protected view requested before session hydration")
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Session not ready", http.StatusServiceUnavailable)
		}
	})
}

// Handler wraps h with Protect when access is Protected.
func (g *Guard) Handler(access Access, h http.Handler) http.Handler {
	if access == Protected {
		return g.Protect(h)
	}
	return h
}
