package assessment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/apperr"
	httpClient "github.com/andrapiyadisha/cardio-risk-ml-system/pkg/http"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/models"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/remotetest"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/session"
)

func sampleInput() models.AssessmentInput {
	return models.AssessmentInput{
		Age:         50,
		Gender:      models.GenderFemale,
		Height:      165,
		Weight:      70,
		APHi:        120,
		APLo:        80,
		Cholesterol: models.LevelNormal,
		Glucose:     models.LevelNormal,
		Smoker:      false,
		Alcohol:     false,
		Active:      true,
	}
}

func newPipeline(t *testing.T) (*Pipeline, *remotetest.Server, *session.PersistentStore) {
	t.Helper()
	remote := remotetest.New()
	srv, baseURL := remote.Start()
	t.Cleanup(srv.Close)

	store := session.NewStore(session.NewMemoryKV())
	store.Hydrate()
	return NewPipeline(httpClient.NewClient(baseURL, 5*time.Second), store), remote, store
}

func TestSubmitAnonymous(t *testing.T) {
	p, remote, _ := newPipeline(t)
	remote.SetPredictor(func(models.PredictRequest) remotetest.Reply {
		return remotetest.Reply{Score: 18.4, Category: "Low"}
	})

	result, err := p.Submit(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, 18.4, result.RiskScore)
	assert.Equal(t, models.RiskLow, result.RiskCategory)
	assert.InDelta(t, 0.184, result.Probability, 1e-9)
	assert.Nil(t, result.Integrity)
	assert.Equal(t, []string{"General Health Markers"}, result.Factors)

	calls := remote.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/predict", calls[0].Path)
	assert.Empty(t, calls[0].Authorization)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(calls[0].Body, &sent))
	assert.NotContains(t, sent, "userId")
	assert.Equal(t, float64(1), sent["gender"])
	assert.Equal(t, float64(1), sent["active"])
}

func TestSubmitAuthenticatedSendsTokenAndUser(t *testing.T) {
	p, remote, store := newPipeline(t)
	require.NoError(t, store.Login(&models.User{ID: 42, Name: "Ada"}, "tok-42"))

	_, err := p.Submit(context.Background(), sampleInput())
	require.NoError(t, err)

	calls := remote.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer tok-42", calls[0].Authorization)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(calls[0].Body, &sent))
	assert.Equal(t, float64(42), sent["userId"])
}

func TestSubmitCorrectsInconsistentCategory(t *testing.T) {
	p, remote, _ := newPipeline(t)
	remote.SetPredictor(func(models.PredictRequest) remotetest.Reply {
		return remotetest.Reply{Score: 61.0, Category: "Medium"}
	})

	result, err := p.Submit(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, models.RiskHigh, result.RiskCategory)
	require.NotNil(t, result.Integrity)
	assert.Equal(t, "riskCategory", result.Integrity.Field)
	assert.Equal(t, "Medium", result.Integrity.Reported)
	assert.Equal(t, "High", result.Integrity.Corrected)
}

func TestSubmitInvalidInputNeverReachesNetwork(t *testing.T) {
	p, remote, _ := newPipeline(t)
	in := sampleInput()
	in.APHi = 300

	_, err := p.Submit(context.Background(), in)
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("ap_hi"))
	assert.Empty(t, remote.Calls())
}

func TestSubmitRemoteFailure(t *testing.T) {
	p, remote, _ := newPipeline(t)
	remote.FailWith("/predict", http.StatusInternalServerError)

	_, err := p.Submit(context.Background(), sampleInput())
	var remoteErr *apperr.RemoteServiceError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusInternalServerError, remoteErr.Status)
	assert.Len(t, remote.Calls(), 1)
}

func TestSubmitTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	store := session.NewStore(session.NewMemoryKV())
	store.Hydrate()
	p := NewPipeline(httpClient.NewClient(baseURL, time.Second), store)

	_, err := p.Submit(context.Background(), sampleInput())
	var transportErr *apperr.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestSubmitTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	store := session.NewStore(session.NewMemoryKV())
	store.Hydrate()
	p := NewPipeline(httpClient.NewClient(srv.URL, 50*time.Millisecond), store)

	_, err := p.Submit(context.Background(), sampleInput())
	var transportErr *apperr.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestNormalize(t *testing.T) {
	in := sampleInput()

	_, err := Normalize(models.PredictResponse{}, in)
	var remoteErr *apperr.RemoteServiceError
	assert.ErrorAs(t, err, &remoteErr)

	_, err = Normalize(models.PredictResponse{RiskScore: models.Known(140)}, in)
	assert.ErrorAs(t, err, &remoteErr)

	r, err := Normalize(models.PredictResponse{RiskScore: models.Known(49.996), RiskCategory: "medium"}, in)
	require.NoError(t, err)
	assert.Equal(t, 50.0, r.RiskScore)
	assert.Equal(t, models.RiskMedium, r.RiskCategory)
	assert.Nil(t, r.Integrity)

	r, err = Normalize(models.PredictResponse{RiskScore: models.Known(30), RiskCategory: "medium"}, in)
	require.NoError(t, err)
	assert.Equal(t, models.RiskMedium, r.RiskCategory)
	assert.Nil(t, r.Integrity)
	assert.Equal(t, 0.3, r.Probability)

	r, err = Normalize(models.PredictResponse{
		RiskScore: models.Known(10),
		Factors:   []string{"a", "b", "c", "d"},
	}, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, r.Factors)
}

func TestDeriveFactors(t *testing.T) {
	in := sampleInput()
	assert.Equal(t, []string{"General Health Markers"}, DeriveFactors(in))

	in.APHi = 150
	in.Cholesterol = models.LevelAboveNormal
	in.Smoker = true
	in.Age = 60
	assert.Equal(t, []string{"High Systolic BP", "Elevated Cholesterol", "Smoking"}, DeriveFactors(in))
}

func TestNormalizeBandsUnroundedScore(t *testing.T) {
	in := sampleInput()
	cases := []struct {
		score    float64
		reported string
		want     models.RiskCategory
		rounded  float64
	}{
		{24.999, "Low", models.RiskLow, 25},
		{25, "Medium", models.RiskMedium, 25},
		{49.999, "Medium", models.RiskMedium, 50},
		{50, "High", models.RiskHigh, 50},
	}
	for _, tc := range cases {
		r, err := Normalize(models.PredictResponse{RiskScore: models.Known(tc.score), RiskCategory: tc.reported}, in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, r.RiskCategory, "score %v", tc.score)
		assert.Equal(t, tc.rounded, r.RiskScore, "score %v", tc.score)
		assert.Nil(t, r.Integrity, "score %v", tc.score)
	}
}

func TestNormalizeCarriesServerErrorMessage(t *testing.T) {
	_, err := Normalize(models.PredictResponse{Error: "Model not loaded"}, sampleInput())
	var remoteErr *apperr.RemoteServiceError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "Model not loaded", remoteErr.UserMessage())

	_, err = Normalize(models.PredictResponse{}, sampleInput())
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, apperr.GenericRemoteMessage, remoteErr.UserMessage())
}

func TestSubmitErrorBodyWithSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":"Model not loaded"}`))
	}))
	defer srv.Close()

	store := session.NewStore(session.NewMemoryKV())
	store.Hydrate()
	p := NewPipeline(httpClient.NewClient(srv.URL, time.Second), store)

	_, err := p.Submit(context.Background(), sampleInput())
	var remoteErr *apperr.RemoteServiceError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "Model not loaded", remoteErr.UserMessage())
}

func TestSubmitAtInclusiveBounds(t *testing.T) {
	type field struct {
		name     string
		min, max int
		set      func(*models.AssessmentInput, int)
	}
	fields := []field{
		{"age", 1, 110, func(in *models.AssessmentInput, v int) { in.Age = v }},
		{"height", 50, 250, func(in *models.AssessmentInput, v int) { in.Height = v }},
		{"weight", 10, 300, func(in *models.AssessmentInput, v int) { in.Weight = float64(v) }},
		{"ap_hi", 60, 250, func(in *models.AssessmentInput, v int) { in.APHi = v }},
		{"ap_lo", 40, 150, func(in *models.AssessmentInput, v int) { in.APLo = v }},
	}

	for _, f := range fields {
		t.Run(f.name, func(t *testing.T) {
			p, remote, _ := newPipeline(t)

			for _, v := range []int{f.min, f.max} {
				in := sampleInput()
				f.set(&in, v)
				require.NoError(t, Validate(in), "%s=%d", f.name, v)

				values := validForm()
				values.Set(FieldGlucose, "normal")
				values.Set(FieldWeight, "70")
				values.Set(f.name, strconv.Itoa(v))
				parsed, err := FromForm(values)
				require.NoError(t, err, "%s=%d", f.name, v)
				assert.Equal(t, in, parsed)

				result, err := p.Submit(context.Background(), in)
				require.NoError(t, err, "%s=%d", f.name, v)
				assert.True(t, result.RiskCategory.Valid())
			}
			assert.Len(t, remote.Calls(), 2)

			for _, v := range []int{f.min - 1, f.max + 1} {
				in := sampleInput()
				f.set(&in, v)
				_, err := p.Submit(context.Background(), in)
				var verr *apperr.ValidationError
				require.ErrorAs(t, err, &verr, "%s=%d", f.name, v)
				assert.True(t, verr.Has(f.name), "%s=%d", f.name, v)
			}
			assert.Len(t, remote.Calls(), 2)
		})
	}
}
