// Package history reads a user's past assessments and summary from the
// remote service. Reads are best-effort: failures become Empty/Failed tags
// (or empty values) and never reach the caller as errors.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/apperr"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/metrics"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/models"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/session"
)

const (
	HistoryPath = "/user/history"
	StatsPath   = "/user/stats"
	MetricsPath = "/model/metrics"
)

// Display statuses for the last risk score.
const (
	StatusActionNeeded = "Action Needed"
	StatusMonitor      = "Monitor"
	StatusStable       = "Stable"
)

// Getter performs one GET and decodes the reply.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values, token string, result interface{}) error
}

// SessionReader supplies the credential sent with each read.
type SessionReader interface {
	Snapshot() session.Session
}

// Aggregator fetches fresh data on every call; nothing is cached.
type Aggregator struct {
	client   Getter
	sessions SessionReader
}

func NewAggregator(client Getter, sessions SessionReader) *Aggregator {
	return &Aggregator{client: client, sessions: sessions}
}

// Status classifies a risk score for display, with the same thresholds as
// the result categories.
func Status(score float64) string {
	switch models.CategoryFor(score) {
	case models.RiskHigh:
		return StatusActionNeeded
	case models.RiskMedium:
		return StatusMonitor
	}
	return StatusStable
}

// History returns the user's entries in server order. Malformed entries are
// skipped.
func (a *Aggregator) History(ctx context.Context, userID int) Fetched[[]models.HistoryEntry] {
	raw, err := a.get(ctx, HistoryPath, userID)
	if err != nil {
		return record("history", failed[[]models.HistoryEntry](err))
	}
	if isNull(raw) {
		return record("history", empty([]models.HistoryEntry{}))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return record("history", failed[[]models.HistoryEntry](&apperr.RemoteServiceError{
			Err: fmt.Errorf("history payload is not a list: %w", err),
		}))
	}

	entries := make([]models.HistoryEntry, 0, len(items))
	skipped := 0
	for _, item := range items {
		var p models.HistoryPayload
		if err := json.Unmarshal(item, &p); err != nil || strings.TrimSpace(p.Date) == "" || !p.Score.Valid {
			skipped++
			continue
		}
		entries = append(entries, models.HistoryEntry{
			ID:     idString(p.ID),
			Date:   strings.TrimSpace(p.Date),
			Type:   p.Type,
			Result: p.Result,
			Score:  models.RoundScore(p.Score.Value),
		})
	}
	if skipped > 0 {
		log.Warn().Int("user_id", userID).Int("skipped", skipped).Msg("Dropped malformed history entries")
	}
	if len(entries) == 0 {
		return record("history", empty(entries))
	}
	return record("history", ok(entries))
}

// FetchHistory is History collapsed to a slice: empty on any failure.
func (a *Aggregator) FetchHistory(ctx context.Context, userID int) []models.HistoryEntry {
	f := a.History(ctx, userID)
	if f.Outcome != OK {
		return []models.HistoryEntry{}
	}
	return f.Data
}

// Stats returns the normalized summary. A payload without any assessment is
// tagged Empty but still carries what the server sent (e.g. the tip).
func (a *Aggregator) Stats(ctx context.Context, userID int) Fetched[*models.UserStats] {
	raw, err := a.get(ctx, StatsPath, userID)
	if err != nil {
		return record("stats", failed[*models.UserStats](err))
	}
	if isNull(raw) {
		return record("stats", failed[*models.UserStats](&apperr.RemoteServiceError{
			Err: fmt.Errorf("stats payload is empty"),
		}))
	}

	var p models.StatsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return record("stats", failed[*models.UserStats](&apperr.RemoteServiceError{
			Err: fmt.Errorf("stats payload malformed: %w", err),
		}))
	}

	stats := NormalizeStats(p)
	if stats.LastRisk == nil && stats.TotalAssessments == 0 && len(stats.RiskHistory) == 0 {
		return record("stats", empty(stats))
	}
	return record("stats", ok(stats))
}

// FetchStats is Stats collapsed to a pointer: nil on any failure.
func (a *Aggregator) FetchStats(ctx context.Context, userID int) *models.UserStats {
	f := a.Stats(ctx, userID)
	if f.Outcome == Failed {
		return nil
	}
	return f.Data
}

// ModelMetrics is a plain read-through; errors are returned to the caller.
func (a *Aggregator) ModelMetrics(ctx context.Context) (*models.ModelMetrics, error) {
	var m models.ModelMetrics
	if err := a.client.Get(ctx, MetricsPath, nil, "", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// NormalizeStats converts the display-oriented payload into optional numbers.
// Absent values stay nil/zero/empty.
func NormalizeStats(p models.StatsPayload) *models.UserStats {
	stats := &models.UserStats{
		LastRisk:      p.LastRisk.Ptr(),
		LastSystolic:  p.LastSystolic.Ptr(),
		LastDiastolic: p.LastDiastolic.Ptr(),
		RiskHistory:   make([]models.RiskPoint, 0, len(p.RiskHistory)),
		DailyTip:      strings.TrimSpace(p.DailyTip),
	}
	if stats.LastRisk != nil {
		stats.LastCategory = models.CategoryFor(*stats.LastRisk)
	}
	if p.TotalPredictions.Valid && p.TotalPredictions.Value > 0 {
		stats.TotalAssessments = int(p.TotalPredictions.Value)
	}
	for _, pt := range p.RiskHistory {
		if strings.TrimSpace(pt.Date) == "" || !pt.Score.Valid {
			continue
		}
		stats.RiskHistory = append(stats.RiskHistory, models.RiskPoint{
			Date:  strings.TrimSpace(pt.Date),
			Score: pt.Score.Value,
		})
	}
	return stats
}

func (a *Aggregator) get(ctx context.Context, path string, userID int) (json.RawMessage, error) {
	var raw json.RawMessage
	query := url.Values{"userId": {strconv.Itoa(userID)}}
	if err := a.client.Get(ctx, path, query, a.sessions.Snapshot().Token, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func record[T any](resource string, f Fetched[T]) Fetched[T] {
	metrics.Inc(metrics.FetchOutcomeTotal, prometheus.Labels{"resource": resource, "outcome": f.Outcome.String()}, 1)
	if f.Outcome == Failed {
		log.Warn().Err(f.Err).Str("resource", resource).Msg("Fetch failed, rendering fallback")
	}
	return f
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func idString(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(id)
}
