// Package web exposes the client core as a small local HTTP gateway: one JSON
// endpoint per page of the application.
package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/apperr"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/assessment"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/auth"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/guard"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/history"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/models"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/session"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/views"
)

const serviceName = "gateway"

// Version is reported by /health.
const Version = "1.0.0"

type Gateway struct {
	sessions  session.Store
	auth      *auth.Service
	pipeline  *assessment.Pipeline
	history   *history.Aggregator
	guard     *guard.Guard
	startTime time.Time
}

func NewGateway(sessions session.Store, authSvc *auth.Service, pipeline *assessment.Pipeline, agg *history.Aggregator) *Gateway {
	return &Gateway{
		sessions:  sessions,
		auth:      authSvc,
		pipeline:  pipeline,
		history:   agg,
		guard:     guard.New(sessions, guard.DefaultLoginPath),
		startTime: time.Now(),
	}
}

// LoginPage is what GET /login answers.
type LoginPage struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	Fields        []string     `json:"fields"`
}

// SessionInfo describes the current session.
type SessionInfo struct {
	State string       `json:"state"`
	User  *models.User `json:"user,omitempty"`
}

// AuthResult answers login and register. Warning is set when the session
// could not be persisted.
type AuthResult struct {
	User    *models.User `json:"user"`
	Warning string       `json:"warning,omitempty"`
}

type registerForm struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (g *Gateway) Router() *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", g.healthHandler).Methods("GET")

	routes := []struct {
		path    string
		method  string
		access  guard.Access
		handler http.HandlerFunc
	}{
		{"/login", "GET", guard.Public, g.loginPageHandler},
		{"/login", "POST", guard.Public, g.loginHandler},
		{"/register", "POST", guard.Public, g.registerHandler},
		{"/logout", "POST", guard.Public, g.logoutHandler},
		{"/session", "GET", guard.Public, g.sessionHandler},
		{"/predict", "POST", guard.Public, g.predictHandler},
		{"/model-performance", "GET", guard.Public, g.modelPerformanceHandler},
		{"/dashboard", "GET", guard.Protected, g.dashboardHandler},
		{"/history", "GET", guard.Protected, g.historyHandler},
	}
	for _, rt := range routes {
		r.Handle(rt.path, g.guard.Handler(rt.access, rt.handler)).Methods(rt.method)
	}

	// Add middleware
	r.Use(loggingMiddleware)
	r.Use(tracingMiddleware)

	return r
}

func (g *Gateway) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Service:   serviceName,
		Version:   Version,
		Timestamp: time.Now(),
		Uptime:    time.Since(g.startTime).String(),
		Session:   g.sessions.State().String(),
	})
}

func (g *Gateway) loginPageHandler(w http.ResponseWriter, r *http.Request) {
	user := g.sessions.CurrentUser()
	writeJSON(w, http.StatusOK, LoginPage{
		Authenticated: user != nil,
		User:          user,
		Fields:        []string{"email", "password"},
	})
}

func (g *Gateway) loginHandler(w http.ResponseWriter, r *http.Request) {
	values, err := decodeValues(w, r)
	if err != nil {
		badRequest(w, err)
		return
	}

	user, err := g.auth.Login(r.Context(), values.Get("email"), values.Get("password"))
	g.respondAuth(w, user, err)
}

func (g *Gateway) registerHandler(w http.ResponseWriter, r *http.Request) {
	values, err := decodeValues(w, r)
	if err != nil {
		badRequest(w, err)
		return
	}

	user, err := g.auth.Register(r.Context(), models.RegisterRequest{
		FullName:        values.Get("fullName"),
		Email:           values.Get("email"),
		Password:        values.Get("password"),
		ConfirmPassword: values.Get("confirmPassword"),
	})
	g.respondAuth(w, user, err)
}

func (g *Gateway) respondAuth(w http.ResponseWriter, user *models.User, err error) {
	var perr *apperr.PersistenceError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, AuthResult{User: user})
	case errors.As(err, &perr) && user != nil:
		writeJSON(w, http.StatusOK, AuthResult{
			User:    user,
			Warning: "You are logged in, but the session could not be saved and will end when the app closes.",
		})
	default:
		writeFailure(w, err)
	}
}

func (g *Gateway) logoutHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "logged out"}
	if err := g.auth.Logout(); err != nil {
		log.Warn().Err(err).Msg("Logout could not clear persisted session")
		resp["warning"] = "The saved session could not be removed."
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) sessionHandler(w http.ResponseWriter, r *http.Request) {
	snap := g.sessions.Snapshot()
	writeJSON(w, http.StatusOK, SessionInfo{
		State: g.sessions.State().String(),
		User:  snap.User,
	})
}

func (g *Gateway) predictHandler(w http.ResponseWriter, r *http.Request) {
	values, err := decodeValues(w, r)
	if err != nil {
		badRequest(w, err)
		return
	}

	in, err := assessment.FromForm(values)
	if err != nil {
		writeFailure(w, err)
		return
	}

	result, err := g.pipeline.Submit(r.Context(), in)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views.NewResultPage(result))
}

func (g *Gateway) modelPerformanceHandler(w http.ResponseWriter, r *http.Request) {
	m, err := g.history.ModelMetrics(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load model metrics")
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (g *Gateway) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := g.requireUser(w, r)
	if !ok {
		return
	}
	stats := g.history.Stats(r.Context(), user.ID)
	writeJSON(w, http.StatusOK, views.NewDashboard(user, stats))
}

func (g *Gateway) historyHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := g.requireUser(w, r)
	if !ok {
		return
	}
	entries := g.history.History(r.Context(), user.ID)
	writeJSON(w, http.StatusOK, views.NewHistoryPage(entries))
}

// requireUser covers a logout that lands between the guard and the handler.
func (g *Gateway) requireUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user := g.sessions.CurrentUser()
	if user == nil {
		http.Redirect(w, r, guard.DefaultLoginPath, http.StatusFound)
		return nil, false
	}
	return user, true
}
