// Package views turns fetched data into what the pages display. Every
// fallback value shown to the user is decided here.
package views

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/history"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/models"
)

const (
	NotAvailable = "N/A"
	GuestName    = "Guest"
	NoDataLabel  = "No Data"
	DefaultTip   = "Walking for just 30 minutes a day can reduce your risk of heart disease by 30%."
	Disclaimer   = "This assessment is for educational purposes only and is not a medical diagnosis. Consult a healthcare professional for advice about your health."

	recentActivityLimit = 3
)

// Dashboard is the summary page of a logged-in user.
type Dashboard struct {
	Greeting       string             `json:"greeting"`
	CurrentRisk    string             `json:"currentRisk"`
	RiskCategory   string             `json:"riskCategory"`
	Systolic       string             `json:"systolic"`
	Diastolic      string             `json:"diastolic"`
	Assessments    int                `json:"assessments"`
	Status         string             `json:"status"`
	RiskHistory    []models.RiskPoint `json:"riskHistory"`
	RecentActivity []models.RiskPoint `json:"recentActivity"`
	DailyTip       string             `json:"dailyTip"`
	Unavailable    bool               `json:"unavailable,omitempty"`
}

// NewDashboard renders stats for user. A failed or empty fetch renders the
// same placeholders as a user without assessments.
func NewDashboard(user *models.User, f history.Fetched[*models.UserStats]) Dashboard {
	d := Dashboard{
		Greeting:       GuestName,
		CurrentRisk:    NotAvailable,
		RiskCategory:   NotAvailable,
		Systolic:       NotAvailable,
		Diastolic:      NotAvailable,
		Status:         NotAvailable,
		RecentActivity: []models.RiskPoint{},
		DailyTip:       DefaultTip,
		Unavailable:    f.Outcome == history.Failed,
	}
	if user != nil && strings.TrimSpace(user.Name) != "" {
		d.Greeting = user.Name
	}

	stats := f.Data
	if f.Outcome == history.Failed || stats == nil {
		d.RiskHistory = noData()
		return d
	}

	if stats.LastRisk != nil {
		d.CurrentRisk = fmt.Sprintf("%.1f%%", *stats.LastRisk)
		d.RiskCategory = string(stats.LastCategory)
		d.Status = history.Status(*stats.LastRisk)
	}
	if stats.LastSystolic != nil {
		d.Systolic = mmHg(*stats.LastSystolic)
	}
	if stats.LastDiastolic != nil {
		d.Diastolic = mmHg(*stats.LastDiastolic)
	}
	d.Assessments = stats.TotalAssessments
	if stats.DailyTip != "" {
		d.DailyTip = stats.DailyTip
	}

	if len(stats.RiskHistory) == 0 {
		d.RiskHistory = noData()
		return d
	}
	d.RiskHistory = append([]models.RiskPoint(nil), stats.RiskHistory...)

	// the series is oldest first
	for i := len(stats.RiskHistory) - 1; i >= 0 && len(d.RecentActivity) < recentActivityLimit; i-- {
		d.RecentActivity = append(d.RecentActivity, stats.RiskHistory[i])
	}
	return d
}

func noData() []models.RiskPoint {
	return []models.RiskPoint{{Date: NoDataLabel, Score: 0}}
}

func mmHg(v float64) string {
	return fmt.Sprintf("%.0f mmHg", v)
}

// HistoryRow is one line of the history table.
type HistoryRow struct {
	models.HistoryEntry
	Badge string `json:"badge"`
}

// HistoryPage lists past assessments, newest first.
type HistoryPage struct {
	Entries     []HistoryRow `json:"entries"`
	Unavailable bool         `json:"unavailable,omitempty"`
}

func NewHistoryPage(f history.Fetched[[]models.HistoryEntry]) HistoryPage {
	page := HistoryPage{
		Entries:     []HistoryRow{},
		Unavailable: f.Outcome == history.Failed,
	}
	if f.Outcome != history.OK {
		return page
	}

	for _, e := range f.Data {
		page.Entries = append(page.Entries, HistoryRow{HistoryEntry: e, Badge: Badge(e)})
	}
	sort.SliceStable(page.Entries, func(i, j int) bool {
		return newer(page.Entries[i].Date, page.Entries[j].Date)
	})
	return page
}

// Badge picks Low/Medium/High from the entry's label, or from its score when
// the label names none of them.
func Badge(e models.HistoryEntry) string {
	label := strings.ToLower(e.Result)
	switch {
	case strings.Contains(label, "high"):
		return string(models.RiskHigh)
	case strings.Contains(label, "medium"), strings.Contains(label, "moderate"):
		return string(models.RiskMedium)
	case strings.Contains(label, "low"):
		return string(models.RiskLow)
	}
	return string(models.CategoryFor(e.Score))
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "Jan 02, 2006", "Jan 02"}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// newer orders parsable dates before unparsable ones.
func newer(a, b string) bool {
	ta, okA := parseDate(a)
	tb, okB := parseDate(b)
	switch {
	case okA && okB:
		return ta.After(tb)
	case okA != okB:
		return okA
	}
	return a > b
}

// ResultPage is the outcome shown after an assessment.
type ResultPage struct {
	RiskCategory     string   `json:"riskCategory"`
	RiskScore        float64  `json:"riskScore"`
	Score            string   `json:"score"`
	Probability      float64  `json:"probability"`
	Factors          []string `json:"factors"`
	HighRiskAlert    bool     `json:"highRiskAlert"`
	IntegrityWarning string   `json:"integrityWarning,omitempty"`
	Disclaimer       string   `json:"disclaimer"`
}

func NewResultPage(r *models.AssessmentResult) ResultPage {
	page := ResultPage{
		RiskCategory:  string(r.RiskCategory),
		RiskScore:     r.RiskScore,
		Score:         fmt.Sprintf("%.1f%%", r.RiskScore),
		Probability:   r.Probability,
		Factors:       append([]string{}, r.Factors...),
		HighRiskAlert: r.RiskCategory == models.RiskHigh,
		Disclaimer:    Disclaimer,
	}
	if r.Integrity != nil {
		page.IntegrityWarning = fmt.Sprintf("The service labelled this result %q; it is shown as %s to match the score.",
			r.Integrity.Reported, r.Integrity.Corrected)
	}
	return page
}
