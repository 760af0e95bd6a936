// Package assessment turns a completed assessment form into a categorized
// risk result by way of the remote prediction service.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/apperr"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/metrics"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/models"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/session"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/validation"
)

const PredictPath = "/predict"

const maxFactors = 3

// Poster sends one JSON request and decodes the reply.
type Poster interface {
	Post(ctx context.Context, path string, token string, payload interface{}, result interface{}) error
}

// SessionReader supplies the identity and credential for a submission.
type SessionReader interface {
	Snapshot() session.Session
}

type Pipeline struct {
	client   Poster
	sessions SessionReader
}

func NewPipeline(client Poster, sessions SessionReader) *Pipeline {
	return &Pipeline{client: client, sessions: sessions}
}

// Validate checks presence and bounds of every field.
func Validate(in models.AssessmentInput) error {
	return validation.Struct(in)
}

// Submit validates in, sends it once and normalizes the reply. Failures are
// *apperr.ValidationError (nothing was sent), *apperr.TransportError or
// *apperr.RemoteServiceError. There is no retry.
func (p *Pipeline) Submit(ctx context.Context, in models.AssessmentInput) (*models.AssessmentResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	snap := p.sessions.Snapshot()
	req := models.NewPredictRequest(in, snap.UserID())

	var resp models.PredictResponse
	if err := p.client.Post(ctx, PredictPath, snap.Token, req, &resp); err != nil {
		return nil, classify(err)
	}

	result, err := Normalize(resp, in)
	if err != nil {
		log.Error().Err(err).Msg("Prediction response unusable")
		return nil, err
	}

	if w := result.Integrity; w != nil {
		log.Warn().
			Str("field", w.Field).
			Str("reported", w.Reported).
			Str("corrected", w.Corrected).
			Float64("score", w.Score).
			Msg("Server risk category contradicts its score, corrected locally")
		metrics.Inc(metrics.IntegrityWarningsTotal, prometheus.Labels{"field": w.Field}, 1)
	}
	metrics.Inc(metrics.AssessmentsTotal, prometheus.Labels{"category": string(result.RiskCategory)}, 1)

	log.Info().
		Bool("authenticated", snap.Authenticated()).
		Float64("score", result.RiskScore).
		Str("category", string(result.RiskCategory)).
		Msg("Assessment completed")
	return result, nil
}

// Normalize builds a result from a 2xx payload. The category is always
// derived from the unrounded score, the same way the dashboard bands it; a
// disagreeing server category is recorded as a DataIntegrityWarning on the
// result. Rounding applies to the displayed score and probability only.
func Normalize(resp models.PredictResponse, in models.AssessmentInput) (*models.AssessmentResult, error) {
	if !resp.RiskScore.Valid {
		return nil, &apperr.RemoteServiceError{
			Message: strings.TrimSpace(resp.Error),
			Err:     errors.New("response has no usable riskScore"),
		}
	}
	raw := resp.RiskScore.Value
	if raw < 0 || raw > 100 {
		return nil, &apperr.RemoteServiceError{Err: fmt.Errorf("riskScore %v outside 0..100", raw)}
	}

	score := models.RoundScore(raw)
	category := models.CategoryFor(raw)
	result := &models.AssessmentResult{
		RiskScore:    score,
		RiskCategory: category,
		Probability:  math.Round(score*100) / 10000,
		Factors:      resp.Factors,
	}

	reported := strings.TrimSpace(resp.RiskCategory)
	if reported != "" && !strings.EqualFold(reported, string(category)) {
		result.Integrity = &apperr.DataIntegrityWarning{
			Field:     "riskCategory",
			Reported:  reported,
			Corrected: string(category),
			Score:     score,
		}
	}

	if len(result.Factors) == 0 {
		result.Factors = DeriveFactors(in)
	}
	if len(result.Factors) > maxFactors {
		result.Factors = result.Factors[:maxFactors]
	}
	return result, nil
}

// DeriveFactors names the inputs that most raise the risk, in the order the
// prediction service reports them.
func DeriveFactors(in models.AssessmentInput) []string {
	var factors []string
	if in.APHi > 140 {
		factors = append(factors, "High Systolic BP")
	}
	if in.Cholesterol > models.LevelNormal {
		factors = append(factors, "Elevated Cholesterol")
	}
	if in.Smoker {
		factors = append(factors, "Smoking")
	}
	if in.Age > 55 {
		factors = append(factors, "Age Factor")
	}
	if len(factors) == 0 {
		return []string{"General Health Markers"}
	}
	if len(factors) > maxFactors {
		factors = factors[:maxFactors]
	}
	return factors
}

func classify(err error) error {
	var transportErr *apperr.TransportError
	var remoteErr *apperr.RemoteServiceError
	if errors.As(err, &transportErr) || errors.As(err, &remoteErr) {
		return err
	}
	return &apperr.TransportError{Op: "POST", URL: PredictPath, Err: err}
}
