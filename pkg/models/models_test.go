package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryForBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  RiskCategory
	}{
		{0, RiskLow},
		{24.999, RiskLow},
		{25, RiskMedium},
		{49.999, RiskMedium},
		{50, RiskHigh},
		{100, RiskHigh},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CategoryFor(c.score), "score %v", c.score)
	}
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 18.4, RoundScore(18.4))
	assert.Equal(t, 49.99, RoundScore(49.994))
	assert.Equal(t, 50.0, RoundScore(49.996))
}

func TestMeasureDecodesDisplayStrings(t *testing.T) {
	var p StatsPayload
	raw := `{"lastRisk":"61.0%","lastSystolic":"120 mmHg","lastDiastolic":null,"totalPredictions":4,"riskHistory":[{"date":"Jan 02","score":"12.5"}],"dailyTip":"tip"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, Known(61), p.LastRisk)
	assert.Equal(t, Known(120), p.LastSystolic)
	assert.False(t, p.LastDiastolic.Valid)
	assert.Equal(t, Known(4), p.TotalPredictions)
	require.Len(t, p.RiskHistory, 1)
	assert.Equal(t, Known(12.5), p.RiskHistory[0].Score)
}

func TestMeasurePlaceholdersAreInvalid(t *testing.T) {
	for _, raw := range []string{`"N/A"`, `null`, `""`, `"abc"`, `"NaN"`, `"Inf"`, `{}`} {
		var m Measure
		require.NoError(t, json.Unmarshal([]byte(raw), &m), raw)
		assert.False(t, m.Valid, raw)
		assert.Nil(t, m.Ptr(), raw)
	}
}

func TestMeasureMarshal(t *testing.T) {
	out, err := json.Marshal(struct {
		A Measure `json:"a"`
		B Measure `json:"b"`
	}{A: Known(1.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null}`, string(out))
}

func TestPredictResponseAcceptsStringScore(t *testing.T) {
	var resp PredictResponse
	require.NoError(t, json.Unmarshal([]byte(`{"riskScore":"18.4","riskCategory":"Low","probability":0.184,"factors":["Age Factor"]}`), &resp))
	assert.Equal(t, Known(18.4), resp.RiskScore)
	assert.Equal(t, "Low", resp.RiskCategory)
	assert.Equal(t, []string{"Age Factor"}, resp.Factors)
}

func TestNewPredictRequestEncoding(t *testing.T) {
	in := AssessmentInput{
		Age: 50, Gender: GenderFemale, Height: 165, Weight: 70, APHi: 120, APLo: 80,
		Cholesterol: LevelNormal, Glucose: LevelAboveNormal, Smoker: true, Active: true,
	}

	anon, err := json.Marshal(NewPredictRequest(in, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"age":50,"gender":1,"height":165,"weight":70,"ap_hi":120,"ap_lo":80,
		"cholesterol":1,"gluc":2,"smoke":1,"alco":0,"active":1}`, string(anon))

	id := 7
	withUser, err := json.Marshal(NewPredictRequest(in, &id))
	require.NoError(t, err)
	assert.Contains(t, string(withUser), `"userId":7`)
}

func TestParseEnums(t *testing.T) {
	g, err := ParseGender("Female")
	require.NoError(t, err)
	assert.Equal(t, GenderFemale, g)
	g, err = ParseGender("2")
	require.NoError(t, err)
	assert.Equal(t, GenderMale, g)
	_, err = ParseGender("3")
	assert.Error(t, err)

	l, err := ParseLevel("well_above normal")
	require.NoError(t, err)
	assert.Equal(t, LevelWellAboveNormal, l)
	assert.Equal(t, "above-normal", LevelAboveNormal.String())
	_, err = ParseLevel("4")
	assert.Error(t, err)

	b, err := ParseFlag("yes")
	require.NoError(t, err)
	assert.True(t, b)
	b, err = ParseFlag("0")
	require.NoError(t, err)
	assert.False(t, b)
	_, err = ParseFlag("maybe")
	assert.Error(t, err)
}
