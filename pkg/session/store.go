// Package session holds the authenticated identity of the client process and
// keeps it in sync with a persistent key-value store.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/apperr"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/metrics"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/models"
)

// Persisted keys.
const (
	KeyUser  = "user"
	KeyToken = "token"
)

// State distinguishes "not known yet" from "logged out".
type State int

const (
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// Session is a consistent view of the identity and its credential.
type Session struct {
	User  *models.User
	Token string
}

// Authenticated reports whether the session carries an identity.
func (s Session) Authenticated() bool {
	return s.User != nil
}

// UserID returns nil for an anonymous session.
func (s Session) UserID() *int {
	if s.User == nil {
		return nil
	}
	id := s.User.ID
	return &id
}

// Store is the session contract consumers depend on.
type Store interface {
	Hydrate()
	Login(user *models.User, token string) error
	Logout() error
	CurrentUser() *models.User
	Token() string
	Snapshot() Session
	State() State
}

// PersistentStore is the Store backed by a KV.
type PersistentStore struct {
	kv  KV
	now func() time.Time

	// writeMu serializes login/logout including their storage writes;
	// mu guards the in-memory pair for readers.
	writeMu  sync.Mutex
	mu       sync.RWMutex
	user     *models.User
	token    string
	hydrated bool
}

// NewStore returns a store in the Unknown state; call Hydrate at startup.
func NewStore(kv KV) *PersistentStore {
	return &PersistentStore{kv: kv, now: time.Now}
}

// Hydrate loads the persisted pair. Missing, corrupt, half-written or
// expired data leaves the session empty. It performs no network I/O.
func (s *PersistentStore) Hydrate() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	user, token, ok := s.readPersisted()

	s.mu.Lock()
	if ok {
		s.user, s.token = user, token
	} else {
		s.user, s.token = nil, ""
	}
	s.hydrated = true
	s.mu.Unlock()

	metrics.Inc(metrics.SessionEventsTotal, prometheus.Labels{"event": "hydrate"}, 1)
	s.publish()
	if ok {
		log.Info().Int("user_id", user.ID).Msg("Session restored")
	}
}

func (s *PersistentStore) readPersisted() (*models.User, string, bool) {
	rawUser, hasUser, errUser := s.kv.Get(KeyUser)
	rawToken, hasToken, errToken := s.kv.Get(KeyToken)
	if errUser != nil || errToken != nil {
		log.Warn().AnErr("user_err", errUser).AnErr("token_err", errToken).Msg("Persisted session unreadable, starting logged out")
		return nil, "", false
	}
	if !hasUser && !hasToken {
		return nil, "", false
	}
	if hasUser != hasToken {
		log.Warn().Bool("has_user", hasUser).Bool("has_token", hasToken).Msg("Persisted session incomplete, discarding")
		s.clearPersisted()
		return nil, "", false
	}

	var user *models.User
	if err := json.Unmarshal(rawUser, &user); err != nil || user == nil {
		log.Warn().Err(err).Msg("Persisted user corrupt, discarding session")
		s.clearPersisted()
		return nil, "", false
	}
	token := string(rawToken)
	if token == "" {
		log.Warn().Msg("Persisted token empty, discarding session")
		s.clearPersisted()
		return nil, "", false
	}
	if TokenExpired(token, s.now()) {
		log.Info().Int("user_id", user.ID).Msg("Persisted token expired, discarding session")
		metrics.Inc(metrics.SessionEventsTotal, prometheus.Labels{"event": "expired"}, 1)
		s.clearPersisted()
		return nil, "", false
	}
	return user, token, true
}

// Login sets user and token together, then persists them. A storage failure
// is returned as *apperr.PersistenceError while the in-memory session stays
// valid for this process.
func (s *PersistentStore) Login(user *models.User, token string) error {
	if user == nil || token == "" {
		return apperr.ErrIncompleteSession
	}
	u := *user

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.user, s.token = &u, token
	s.hydrated = true
	s.mu.Unlock()

	metrics.Inc(metrics.SessionEventsTotal, prometheus.Labels{"event": "login"}, 1)
	s.publish()

	raw, err := json.Marshal(&u)
	if err != nil {
		return &apperr.PersistenceError{Op: "encode", Key: KeyUser, Err: err}
	}
	if err := s.kv.Set(KeyUser, raw); err != nil {
		log.Warn().Err(err).Msg("Could not persist session user")
		return &apperr.PersistenceError{Op: "write", Key: KeyUser, Err: err}
	}
	if err := s.kv.Set(KeyToken, []byte(token)); err != nil {
		log.Warn().Err(err).Msg("Could not persist session token")
		// do not leave a user without its token on disk
		_ = s.kv.Delete(KeyUser)
		return &apperr.PersistenceError{Op: "write", Key: KeyToken, Err: err}
	}
	return nil
}

// Logout clears the session in memory and in storage. It is safe to call
// when already logged out.
func (s *PersistentStore) Logout() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.user, s.token = nil, ""
	s.hydrated = true
	s.mu.Unlock()

	metrics.Inc(metrics.SessionEventsTotal, prometheus.Labels{"event": "logout"}, 1)
	s.publish()

	return s.clearPersisted()
}

func (s *PersistentStore) clearPersisted() error {
	var first error
	for _, key := range []string{KeyToken, KeyUser} {
		if err := s.kv.Delete(key); err != nil && first == nil {
			first = &apperr.PersistenceError{Op: "delete", Key: key, Err: err}
		}
	}
	if first != nil {
		log.Warn().Err(first).Msg("Could not clear persisted session")
	}
	return first
}

// CurrentUser returns a copy of the in-memory identity, or nil.
func (s *PersistentStore) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *PersistentStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *PersistentStore) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return Session{}
	}
	u := *s.user
	return Session{User: &u, Token: s.token}
}

func (s *PersistentStore) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case !s.hydrated:
		return StateUnknown
	case s.user != nil:
		return StateAuthenticated
	default:
		return StateAnonymous
	}
}

func (s *PersistentStore) publish() {
	v := 0.0
	if s.State() == StateAuthenticated {
		v = 1
	}
	metrics.Set(metrics.SessionAuthenticated, prometheus.Labels{}, v)
}

// TokenExpired reports whether token is a JWT whose exp claim has passed.
// The signature is not checked: the client holds no key and the server stays
// the authority. Opaque tokens never expire here.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(now)
}
