package remotetest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/models"
)

func post(t *testing.T, s *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, Prefix+path, bytes.NewReader(raw)))
	return rec
}

func TestLoginResponses(t *testing.T) {
	s := New()
	_, err := s.AddUser("Ada", "ada@example.com", "secret1")
	require.NoError(t, err)

	rec := post(t, s, "/auth/login", models.LoginRequest{Email: "ada@example.com", Password: "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())

	rec = post(t, s, "/auth/login", models.LoginRequest{Email: "who@example.com", Password: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = post(t, s, "/auth/login", models.LoginRequest{Email: "ADA@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Ada", resp.User.Name)
	assert.NotEmpty(t, resp.Token)
}

func TestPredictReplyShape(t *testing.T) {
	s := New()
	s.SetPredictor(func(models.PredictRequest) Reply { return Reply{Score: 50, Category: "High"} })

	rec := post(t, s, "/predict", models.PredictRequest{Age: 50, Gender: 1, Height: 165, Weight: 70, APHi: 120, APLo: 80, Cholesterol: 1, Gluc: 1, Active: 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"riskScore":"50.0","riskCategory":"High","probability":0.5,"factors":["General Health Markers"]}`, rec.Body.String())
}

func TestHistoryRequiresToken(t *testing.T) {
	s := New()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, Prefix+"/user/history?userId=1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := s.IssueToken(1, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, Prefix+"/user/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHeuristic(t *testing.T) {
	low := Heuristic(models.PredictRequest{Age: 30, Height: 170, Weight: 65, APHi: 115, Cholesterol: 1, Gluc: 1, Active: 1})
	assert.Equal(t, "Low", low.Category)

	high := Heuristic(models.PredictRequest{Age: 65, Height: 170, Weight: 100, APHi: 170, Cholesterol: 3, Gluc: 2, Smoke: 1})
	assert.Equal(t, "High", high.Category)
	assert.LessOrEqual(t, high.Score, 99.0)
}

func TestStatsWithoutPredictions(t *testing.T) {
	s := New()
	user, err := s.AddUser("Ada", "ada@example.com", "secret1")
	require.NoError(t, err)
	token, err := s.IssueToken(user.ID, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, Prefix+"/user/stats?userId="+strconv.Itoa(user.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "N/A", body["lastRisk"])
	assert.Equal(t, "N/A", body["lastSystolic"])
	assert.Equal(t, "N/A", body["lastDiastolic"])
	assert.NotContains(t, body, "lastHr")
	assert.Equal(t, float64(0), body["totalPredictions"])

	var payload models.StatsPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.False(t, payload.LastSystolic.Valid)
	assert.False(t, payload.LastDiastolic.Valid)
}
