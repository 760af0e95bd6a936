package models

import (
	"time"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/apperr"
)

// User represents an authenticated identity as returned by the auth endpoints
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LoginRequest represents a request to log in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents a request to create an account
type RegisterRequest struct {
	FullName        string `json:"fullName" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"-" form:"confirmPassword" validate:"required,eqfield=Password"`
}

// AuthResponse represents a successful login or registration
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// AssessmentInput holds the medical parameters of one risk assessment
type AssessmentInput struct {
	Age         int     `json:"age" validate:"required,gte=1,lte=110"`
	Gender      Gender  `json:"gender" validate:"required,oneof=1 2"`
	Height      int     `json:"height" validate:"required,gte=50,lte=250"`
	Weight      float64 `json:"weight" validate:"required,gte=10,lte=300"`
	APHi        int     `json:"ap_hi" validate:"required,gte=60,lte=250"`
	APLo        int     `json:"ap_lo" validate:"required,gte=40,lte=150"`
	Cholesterol Level   `json:"cholesterol" validate:"required,oneof=1 2 3"`
	Glucose     Level   `json:"gluc" validate:"required,oneof=1 2 3"`
	Smoker      bool    `json:"smoke"`
	Alcohol     bool    `json:"alco"`
	Active      bool    `json:"active"`
}

// PredictRequest is the wire form of an assessment sent to /predict
type PredictRequest struct {
	Age         int     `json:"age"`
	Gender      int     `json:"gender"`
	Height      int     `json:"height"`
	Weight      float64 `json:"weight"`
	APHi        int     `json:"ap_hi"`
	APLo        int     `json:"ap_lo"`
	Cholesterol int     `json:"cholesterol"`
	Gluc        int     `json:"gluc"`
	Smoke       int     `json:"smoke"`
	Alco        int     `json:"alco"`
	Active      int     `json:"active"`
	UserID      *int    `json:"userId,omitempty"`
}

// NewPredictRequest encodes in for the wire. userID is nil for anonymous submissions.
func NewPredictRequest(in AssessmentInput, userID *int) PredictRequest {
	return PredictRequest{
		Age:         in.Age,
		Gender:      int(in.Gender),
		Height:      in.Height,
		Weight:      in.Weight,
		APHi:        in.APHi,
		APLo:        in.APLo,
		Cholesterol: int(in.Cholesterol),
		Gluc:        int(in.Glucose),
		Smoke:       boolToInt(in.Smoker),
		Alco:        boolToInt(in.Alcohol),
		Active:      boolToInt(in.Active),
		UserID:      userID,
	}
}

// PredictResponse is the raw /predict payload. The score arrives as a number
// or as a formatted string depending on the service version. Probability is
// not read: it is always derived from the score. Error is set by services
// that report a failure with a 2xx status.
type PredictResponse struct {
	RiskScore    Measure  `json:"riskScore"`
	RiskCategory string   `json:"riskCategory"`
	Factors      []string `json:"factors"`
	Error        string   `json:"error,omitempty"`
}

// AssessmentResult is the normalized outcome of one assessment
type AssessmentResult struct {
	RiskScore    float64                      `json:"riskScore"`
	RiskCategory RiskCategory                 `json:"riskCategory"`
	Probability  float64                      `json:"probability"`
	Factors      []string                     `json:"factors,omitempty"`
	Integrity    *apperr.DataIntegrityWarning `json:"integrity,omitempty"`
}

// HistoryEntry represents one past assessment of a user
type HistoryEntry struct {
	ID     string  `json:"id"`
	Date   string  `json:"date"`
	Type   string  `json:"type,omitempty"`
	Result string  `json:"result"`
	Score  float64 `json:"score"`
}

// HistoryPayload is the raw form of a history entry
type HistoryPayload struct {
	ID     any     `json:"id"`
	Date   string  `json:"date"`
	Type   string  `json:"type"`
	Result string  `json:"result"`
	Score  Measure `json:"score"`
}

// RiskPoint is one sample of the risk-history series
type RiskPoint struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
}

// RiskPointPayload is the raw form of a risk-history sample
type RiskPointPayload struct {
	Date  string  `json:"date"`
	Score Measure `json:"score"`
}

// StatsPayload is the raw /user/stats payload. Most values arrive as display
// strings ("61.0%", "120 mmHg", "N/A").
type StatsPayload struct {
	LastRisk         Measure            `json:"lastRisk"`
	LastSystolic     Measure            `json:"lastSystolic"`
	LastDiastolic    Measure            `json:"lastDiastolic"`
	TotalPredictions Measure            `json:"totalPredictions"`
	RiskHistory      []RiskPointPayload `json:"riskHistory"`
	DailyTip         string             `json:"dailyTip"`
}

// UserStats is the normalized per-user summary. Nil pointers mean the value
// was absent upstream; no fallback is filled in here.
type UserStats struct {
	LastRisk         *float64     `json:"lastRisk,omitempty"`
	LastCategory     RiskCategory `json:"lastCategory,omitempty"`
	LastSystolic     *float64     `json:"lastSystolic,omitempty"`
	LastDiastolic    *float64     `json:"lastDiastolic,omitempty"`
	TotalAssessments int          `json:"totalAssessments"`
	RiskHistory      []RiskPoint  `json:"riskHistory"`
	DailyTip         string       `json:"dailyTip,omitempty"`
}

// ModelMetrics is the read-through performance summary of the remote model
type ModelMetrics struct {
	Accuracy          float64             `json:"accuracy"`
	Precision         float64             `json:"precision"`
	Recall            float64             `json:"recall"`
	F1                float64             `json:"f1"`
	ConfusionMatrix   []map[string]any    `json:"confusionMatrix,omitempty"`
	TrainingHistory   []TrainingEpoch     `json:"trainingHistory,omitempty"`
	FeatureImportance []FeatureImportance `json:"featureImportance,omitempty"`
}

// TrainingEpoch is one point of the model training curve
type TrainingEpoch struct {
	Epoch    int     `json:"epoch"`
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
}

// FeatureImportance is the weight of one model input
type FeatureImportance struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	Session   string    `json:"session,omitempty"`
}

// ErrorResponse represents an error response, both from the remote service
// and from the gateway
type ErrorResponse struct {
	Error  string              `json:"error"`
	Code   int                 `json:"code,omitempty"`
	Fields []apperr.FieldError `json:"fields,omitempty"`
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
