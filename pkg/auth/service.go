// Package auth logs the client in and out against the remote service and
// keeps the session store in step.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/apperr"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/models"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/session"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/validation"
)

const (
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"
)

// Poster sends one JSON request and decodes the reply.
type Poster interface {
	Post(ctx context.Context, path string, token string, payload interface{}, result interface{}) error
}

type Service struct {
	client Poster
	store  session.Store
}

func NewService(client Poster, store session.Store) *Service {
	return &Service{client: client, store: store}
}

// Login authenticates and, on success, replaces the session. When the remote
// call fails the session is left as it was.
//
// A *apperr.PersistenceError is returned together with the user: the login
// holds for this process but will not survive a restart.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	req := models.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var resp models.AuthResponse
	if err := s.client.Post(ctx, LoginPath, "", req, &resp); err != nil {
		log.Warn().Err(err).Str("email", req.Email).Msg("Login rejected")
		return nil, classify(err, LoginPath)
	}
	return s.establish(resp)
}

// Register creates an account and logs it in. Mismatched passwords are
// rejected before anything is sent.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var resp models.AuthResponse
	if err := s.client.Post(ctx, RegisterPath, "", req, &resp); err != nil {
		log.Warn().Err(err).Str("email", req.Email).Msg("Registration rejected")
		return nil, classify(err, RegisterPath)
	}
	return s.establish(resp)
}

// Logout clears the session. Logging out twice is not an error.
func (s *Service) Logout() error {
	return s.store.Logout()
}

func (s *Service) establish(resp models.AuthResponse) (*models.User, error) {
	if resp.User == nil || resp.Token == "" {
		return nil, &apperr.RemoteServiceError{Err: errors.New("auth response is missing user or token")}
	}
	if err := s.store.Login(resp.User, resp.Token); err != nil {
		var perr *apperr.PersistenceError
		if errors.As(err, &perr) {
			return s.store.CurrentUser(), err
		}
		return nil, err
	}

	log.Info().Int("user_id", resp.User.ID).Msg("Logged in")
	return s.store.CurrentUser(), nil
}

func classify(err error, path string) error {
	var transportErr *apperr.TransportError
	var remoteErr *apperr.RemoteServiceError
	if errors.As(err, &transportErr) || errors.As(err, &remoteErr) {
		return err
	}
	return &apperr.TransportError{Op: "POST", URL: path, Err: err}
}
