// Package remotetest is an in-memory stand-in for the remote prediction
// service. It speaks the same JSON contract under /api and is used by tests
// and by the local stub command.
package remotetest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/models"
)

// Prefix is the path every route is mounted under.
const Prefix = "/api"

// TokenTTL matches the lifetime of tokens issued by the real service.
const TokenTTL = 24 * time.Hour

var tips = []string{
	"Walking for just 30 minutes a day can reduce your risk of heart disease by 30%.",
	"Replacing saturated fats with unsaturated fats can lower your cholesterol.",
	"Chronic stress releases cortisol, which can raise blood pressure.",
	"Sleep deprivation (<6 hours) increases the risk of heart attack by 20%.",
	"Quitting smoking reduces your heart disease risk by 50% within one year.",
	"Yoga and meditation can significantly lower systolic blood pressure.",
}

// Reply is what the prediction route answers. Score is on the 0..100 scale.
type Reply struct {
	Score    float64
	Category string
}

// Predictor computes a reply for one request.
type Predictor func(req models.PredictRequest) Reply

// Call records one request as it reached the service.
type Call struct {
	Method        string
	Path          string
	Authorization string
	Body          []byte
}

type account struct {
	user         models.User
	passwordHash []byte
}

type prediction struct {
	id     int
	at     time.Time
	req    models.PredictRequest
	score  float64
	result string
}

// Server holds users and predictions in memory.
type Server struct {
	secret []byte
	now    func() time.Time

	usersMutex sync.RWMutex
	users      map[int]*account
	byEmail    map[string]int
	nextID     int

	predMutex   sync.RWMutex
	predictions map[int][]prediction
	nextPredID  int
	predictor   Predictor

	callsMutex sync.Mutex
	calls      []Call
	failures   map[string]int

	startTime time.Time
}

func New() *Server {
	return &Server{
		secret:      []byte("remotetest-secret"),
		now:         time.Now,
		users:       make(map[int]*account),
		byEmail:     make(map[string]int),
		nextID:      1,
		predictions: make(map[int][]prediction),
		nextPredID:  1,
		predictor:   Heuristic,
		failures:    make(map[string]int),
		startTime:   time.Now(),
	}
}

// Start serves s on a loopback listener. The returned base URL already
// includes Prefix.
func (s *Server) Start() (*httptest.Server, string) {
	srv := httptest.NewServer(s.Router())
	return srv, srv.URL + Prefix
}

// SetPredictor replaces the scoring function.
func (s *Server) SetPredictor(p Predictor) {
	s.predMutex.Lock()
	defer s.predMutex.Unlock()
	s.predictor = p
}

// FailWith makes every request to path (without Prefix) answer status.
func (s *Server) FailWith(path string, status int) {
	s.callsMutex.Lock()
	defer s.callsMutex.Unlock()
	s.failures[path] = status
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.callsMutex.Lock()
	defer s.callsMutex.Unlock()
	return append([]Call(nil), s.calls...)
}

// AddUser registers an account directly and returns it.
func (s *Server) AddUser(name, email, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hashing password: %w", err)
	}

	s.usersMutex.Lock()
	defer s.usersMutex.Unlock()
	key := strings.ToLower(email)
	if _, exists := s.byEmail[key]; exists {
		return models.User{}, errors.New("Email already registered")
	}
	user := models.User{ID: s.nextID, Name: name, Email: email}
	s.nextID++
	s.users[user.ID] = &account{user: user, passwordHash: hash}
	s.byEmail[key] = user.ID
	return user, nil
}

// IssueToken signs a token for userID with the given lifetime.
func (s *Server) IssueToken(userID int, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     s.now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Router builds the mux with every route of the service.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recordMiddleware)

	r.HandleFunc("/health", s.healthHandler).Methods("GET")

	api := r.PathPrefix(Prefix).Subrouter()
	api.HandleFunc("/auth/register", s.registerHandler).Methods("POST")
	api.HandleFunc("/auth/login", s.loginHandler).Methods("POST")
	api.HandleFunc("/predict", s.predictHandler).Methods("POST")
	api.HandleFunc("/user/history", s.tokenRequired(s.historyHandler)).Methods("GET")
	api.HandleFunc("/user/stats", s.tokenRequired(s.statsHandler)).Methods("GET")
	api.HandleFunc("/model/metrics", s.modelMetricsHandler).Methods("GET")
	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Service:   "remote-stub",
		Version:   "1.0.0",
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).String(),
	})
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.AddUser(req.FullName, req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Info().Int("user_id", user.ID).Str("email", user.Email).Msg("User registered")
	s.respondWithToken(w, user)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.usersMutex.RLock()
	id, found := s.byEmail[strings.ToLower(req.Email)]
	acc := s.users[id]
	s.usersMutex.RUnlock()

	if !found {
		writeError(w, http.StatusNotFound, "User not found. Please Register first.")
		return
	}
	if bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(req.Password)) != nil {
		log.Info().Str("email", req.Email).Msg("Password mismatch")
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	s.respondWithToken(w, acc.user)
}

func (s *Server) respondWithToken(w http.ResponseWriter, user models.User) {
	token, err := s.IssueToken(user.ID, TokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.AuthResponse{User: &user, Token: token})
}

func (s *Server) predictHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.predMutex.Lock()
	reply := s.predictor(req)
	if req.UserID != nil {
		s.predictions[*req.UserID] = append(s.predictions[*req.UserID], prediction{
			id:     s.nextPredID,
			at:     s.now(),
			req:    req,
			score:  math.Round(reply.Score*10) / 10,
			result: reply.Category + " Risk",
		})
		s.nextPredID++
	}
	s.predMutex.Unlock()

	log.Info().Bool("guest", req.UserID == nil).Float64("score", reply.Score).Msg("Prediction served")

	writeJSON(w, http.StatusOK, map[string]any{
		"riskScore":    strconv.FormatFloat(reply.Score, 'f', 1, 64),
		"riskCategory": reply.Category,
		"probability":  reply.Score / 100,
		"factors":      factors(req),
	})
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request, userID int) {
	preds := s.newestFirst(userID)
	out := make([]map[string]any, 0, len(preds))
	for _, p := range preds {
		out = append(out, map[string]any{
			"id":     p.id,
			"date":   p.at.Format("2006-01-02"),
			"type":   "Prediction",
			"result": p.result,
			"score":  p.score,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request, userID int) {
	preds := s.newestFirst(userID)
	if len(preds) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"lastRisk":         "N/A",
			"lastSystolic":     "N/A",
			"lastDiastolic":    "N/A",
			"totalPredictions": 0,
			"riskHistory":      []any{},
			"dailyTip":         tips[0],
		})
		return
	}

	last := preds[0]
	n := len(preds)
	if n > 6 {
		n = 6
	}
	chart := make([]map[string]any, 0, n)
	for i := n - 1; i >= 0; i-- {
		chart = append(chart, map[string]any{
			"date":  preds[i].at.Format("Jan 02"),
			"score": preds[i].score,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lastRisk":         fmt.Sprintf("%.1f%%", last.score),
		"lastSystolic":     fmt.Sprintf("%d mmHg", last.req.APHi),
		"lastDiastolic":    fmt.Sprintf("%d mmHg", last.req.APLo),
		"totalPredictions": len(preds),
		"riskHistory":      chart,
		"dailyTip":         tips[last.id%len(tips)],
	})
}

func (s *Server) modelMetricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ModelMetrics{
		Accuracy:  0.72,
		Precision: 0.75,
		Recall:    0.67,
		F1:        0.71,
		ConfusionMatrix: []map[string]any{
			{"actual": "Positive", "TP": 120, "FN": 15},
			{"actual": "Negative", "FP": 10, "TN": 155},
		},
		TrainingHistory: []models.TrainingEpoch{
			{Epoch: 1, Loss: 0.5, Accuracy: 0.60},
			{Epoch: 2, Loss: 0.4, Accuracy: 0.70},
			{Epoch: 3, Loss: 0.35, Accuracy: 0.75},
		},
		FeatureImportance: []models.FeatureImportance{
			{Name: "Systolic BP", Value: 0.35},
			{Name: "Age", Value: 0.25},
			{Name: "Cholesterol", Value: 0.15},
			{Name: "Weight", Value: 0.10},
			{Name: "Glucose", Value: 0.08},
		},
	})
}

func (s *Server) newestFirst(userID int) []prediction {
	s.predMutex.RLock()
	preds := append([]prediction(nil), s.predictions[userID]...)
	s.predMutex.RUnlock()
	sort.SliceStable(preds, func(i, j int) bool { return preds[i].id > preds[j].id })
	return preds
}

func (s *Server) tokenRequired(next func(http.ResponseWriter, *http.Request, int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "Token is missing!")
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token is invalid!")
			return
		}
		id, ok := claims["user_id"].(float64)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Token is invalid!")
			return
		}
		if r.URL.Query().Get("userId") == "" {
			writeError(w, http.StatusBadRequest, "User ID required")
			return
		}
		next(w, r, int(id))
	}
}

func (s *Server) recordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = readAll(r)
		}
		path := strings.TrimPrefix(r.URL.Path, Prefix)

		s.callsMutex.Lock()
		s.calls = append(s.calls, Call{
			Method:        r.Method,
			Path:          path,
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		status, fail := s.failures[path]
		s.callsMutex.Unlock()

		if fail {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Heuristic scores a request from its risk factors. It stands in for the
// trained model and is deterministic.
func Heuristic(req models.PredictRequest) Reply {
	score := 5.0
	score += math.Max(0, float64(req.Age-30)) * 0.6
	score += math.Max(0, float64(req.APHi-120)) * 0.5
	score += float64(req.Cholesterol-1) * 8
	score += float64(req.Gluc-1) * 4
	score += float64(req.Smoke) * 6
	score += float64(req.Alco) * 3
	score -= float64(req.Active) * 4
	if req.Height > 0 {
		m := float64(req.Height) / 100
		if bmi := req.Weight / (m * m); bmi >= 30 {
			score += 6
		}
	}
	score = math.Min(99, math.Max(1, score))

	category := "Low"
	switch {
	case score >= 50:
		category = "High"
	case score >= 25:
		category = "Medium"
	}
	return Reply{Score: score, Category: category}
}

func factors(req models.PredictRequest) []string {
	var out []string
	if req.APHi > 140 {
		out = append(out, "High Systolic BP")
	}
	if req.Cholesterol > 1 {
		out = append(out, "Elevated Cholesterol")
	}
	if req.Smoke == 1 {
		out = append(out, "Smoking")
	}
	if req.Age > 55 {
		out = append(out, "Age Factor")
	}
	if len(out) == 0 {
		return []string{"General Health Markers"}
	}
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}
