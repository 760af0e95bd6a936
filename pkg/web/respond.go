package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/apperr"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/models"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeFailure maps a core error onto the inline error banner.
func writeFailure(w http.ResponseWriter, err error) {
	var verr *apperr.ValidationError
	var remoteErr *apperr.RemoteServiceError
	var transportErr *apperr.TransportError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error:  "Please correct the highlighted fields.",
			Code:   http.StatusBadRequest,
			Fields: verr.Fields,
		})
	case errors.As(err, &remoteErr):
		status := http.StatusBadGateway
		if remoteErr.Status >= 400 && remoteErr.Status < 500 {
			status = remoteErr.Status
		}
		writeJSON(w, status, models.ErrorResponse{Error: remoteErr.UserMessage(), Code: remoteErr.Status})
	case errors.As(err, &transportErr):
		writeJSON(w, http.StatusGatewayTimeout, models.ErrorResponse{
			Error: "The prediction service is unreachable. Check your connection and try again.",
			Code:  http.StatusGatewayTimeout,
		})
	default:
		log.Error().Err(err).Msg("Unhandled error")
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Error: "Something went wrong.",
			Code:  http.StatusInternalServerError,
		})
	}
}

// decodeValues reads a JSON object or a form body into url.Values so both
// kinds of submission go through the same field parsing.
func decodeValues(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parsing form: %w", err)
		}
		return r.PostForm, nil
	}

	var body map[string]interface{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}
	values := url.Values{}
	for k, v := range body {
		switch x := v.(type) {
		case nil:
		case string:
			values.Set(k, x)
		case float64:
			values.Set(k, strconv.FormatFloat(x, 'f', -1, 64))
		case bool:
			values.Set(k, strconv.FormatBool(x))
		default:
			values.Set(k, fmt.Sprint(x))
		}
	}
	return values, nil
}

func badRequest(w http.ResponseWriter, err error) {
	log.Warn().Err(err).Msg("Invalid request body")
	writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body", Code: http.StatusBadRequest})
}
