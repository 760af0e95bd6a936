package views

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/apperr"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/history"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/models"
)

func ptr(v float64) *float64 { return &v }

func TestDashboardWithoutAssessments(t *testing.T) {
	stats := history.Fetched[*models.UserStats]{
		Outcome: history.Empty,
		Data:    &models.UserStats{RiskHistory: []models.RiskPoint{}},
	}
	d := NewDashboard(&models.User{ID: 1, Name: "Ada"}, stats)

	assert.Equal(t, "Ada", d.Greeting)
	assert.Equal(t, NotAvailable, d.CurrentRisk)
	assert.Equal(t, NotAvailable, d.Systolic)
	assert.Equal(t, NotAvailable, d.Status)
	assert.Equal(t, 0, d.Assessments)
	assert.Equal(t, []models.RiskPoint{{Date: "No Data", Score: 0}}, d.RiskHistory)
	assert.Empty(t, d.RecentActivity)
	assert.Equal(t, DefaultTip, d.DailyTip)
	assert.False(t, d.Unavailable)
}

func TestDashboardFailedFetch(t *testing.T) {
	d := NewDashboard(nil, history.Fetched[*models.UserStats]{
		Outcome: history.Failed,
		Err:     &apperr.TransportError{Op: "GET", URL: "/user/stats", Err: errors.New("refused")},
	})

	assert.Equal(t, GuestName, d.Greeting)
	assert.Equal(t, NotAvailable, d.CurrentRisk)
	assert.Equal(t, []models.RiskPoint{{Date: NoDataLabel, Score: 0}}, d.RiskHistory)
	assert.True(t, d.Unavailable)
}

func TestDashboardWithStats(t *testing.T) {
	stats := &models.UserStats{
		LastRisk:         ptr(61),
		LastCategory:     models.RiskHigh,
		LastSystolic:     ptr(145),
		LastDiastolic:    ptr(92),
		TotalAssessments: 4,
		RiskHistory: []models.RiskPoint{
			{Date: "Jan 01", Score: 10},
			{Date: "Jan 02", Score: 20},
			{Date: "Jan 03", Score: 40},
			{Date: "Jan 04", Score: 61},
		},
		DailyTip: "Sleep well.",
	}
	d := NewDashboard(&models.User{Name: "Ada"}, history.Fetched[*models.UserStats]{Outcome: history.OK, Data: stats})

	assert.Equal(t, "61.0%", d.CurrentRisk)
	assert.Equal(t, "High", d.RiskCategory)
	assert.Equal(t, "145 mmHg", d.Systolic)
	assert.Equal(t, "92 mmHg", d.Diastolic)
	assert.Equal(t, history.StatusActionNeeded, d.Status)
	assert.Equal(t, 4, d.Assessments)
	assert.Len(t, d.RiskHistory, 4)
	assert.Equal(t, []models.RiskPoint{
		{Date: "Jan 04", Score: 61},
		{Date: "Jan 03", Score: 40},
		{Date: "Jan 02", Score: 20},
	}, d.RecentActivity)
	assert.Equal(t, "Sleep well.", d.DailyTip)
}

func TestHistoryPageSortsNewestFirst(t *testing.T) {
	page := NewHistoryPage(history.Fetched[[]models.HistoryEntry]{
		Outcome: history.OK,
		Data: []models.HistoryEntry{
			{ID: "1", Date: "2024-01-02", Result: "Low Risk", Score: 10},
			{ID: "2", Date: "2024-03-01", Result: "High Risk", Score: 70},
			{ID: "3", Date: "someday", Result: "", Score: 30},
			{ID: "4", Date: "2024-02-10", Result: "Moderate", Score: 35},
		},
	})

	require.Len(t, page.Entries, 4)
	ids := []string{}
	badges := []string{}
	for _, e := range page.Entries {
		ids = append(ids, e.ID)
		badges = append(badges, e.Badge)
	}
	assert.Equal(t, []string{"2", "4", "1", "3"}, ids)
	assert.Equal(t, []string{"High", "Medium", "Low", "Medium"}, badges)
}

func TestHistoryPageFallbacks(t *testing.T) {
	page := NewHistoryPage(history.Fetched[[]models.HistoryEntry]{Outcome: history.Failed, Err: errors.New("x")})
	assert.Empty(t, page.Entries)
	assert.NotNil(t, page.Entries)
	assert.True(t, page.Unavailable)

	page = NewHistoryPage(history.Fetched[[]models.HistoryEntry]{Outcome: history.Empty})
	assert.Empty(t, page.Entries)
	assert.False(t, page.Unavailable)
}

func TestResultPage(t *testing.T) {
	page := NewResultPage(&models.AssessmentResult{
		RiskScore:    61,
		RiskCategory: models.RiskHigh,
		Probability:  0.61,
		Factors:      []string{"Smoking"},
		Integrity:    &apperr.DataIntegrityWarning{Field: "riskCategory", Reported: "Medium", Corrected: "High", Score: 61},
	})
	assert.True(t, page.HighRiskAlert)
	assert.Equal(t, "61.0%", page.Score)
	assert.Contains(t, page.IntegrityWarning, `"Medium"`)
	assert.Equal(t, Disclaimer, page.Disclaimer)

	low := NewResultPage(&models.AssessmentResult{RiskScore: 18.4, RiskCategory: models.RiskLow, Probability: 0.184})
	assert.False(t, low.HighRiskAlert)
	assert.Empty(t, low.IntegrityWarning)
	assert.NotNil(t, low.Factors)
}
