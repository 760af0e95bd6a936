package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	var empty *ValidationError
	assert.NoError(t, empty.OrNil())
	assert.NoError(t, (&ValidationError{}).OrNil())

	v := &ValidationError{}
	v.Add("age", "is required")
	v.Add("ap_hi", "must be at most 250")
	assert.True(t, v.Has("age"))
	assert.False(t, v.Has("weight"))
	assert.EqualError(t, v.OrNil(), "invalid input: age: is required; ap_hi: must be at most 250")
}

func TestErrorsUnwrap(t *testing.T) {
	terr := &TransportError{Op: "POST", URL: "http://x/predict", Err: context.DeadlineExceeded}
	wrapped := fmt.Errorf("submitting: %w", terr)

	var target *TransportError
	assert.True(t, errors.As(wrapped, &target))
	assert.True(t, errors.Is(wrapped, context.DeadlineExceeded))

	perr := &PersistenceError{Op: "write", Key: "token", Err: errors.New("disk full")}
	assert.Equal(t, `persistence write "token": disk full`, perr.Error())
	assert.EqualError(t, errors.Unwrap(perr), "disk full")
}

func TestRemoteServiceErrorMessages(t *testing.T) {
	withMsg := &RemoteServiceError{Status: 401, Message: "Invalid credentials"}
	assert.Equal(t, "Invalid credentials", withMsg.UserMessage())
	assert.Equal(t, "HTTP 401: Invalid credentials", withMsg.Error())

	bare := &RemoteServiceError{Status: 500}
	assert.Equal(t, GenericRemoteMessage, bare.UserMessage())
	assert.Equal(t, "HTTP 500: "+GenericRemoteMessage, bare.Error())
}

func TestDataIntegrityWarning(t *testing.T) {
	w := &DataIntegrityWarning{Field: "riskCategory", Reported: "Medium", Corrected: "High", Score: 61}
	assert.Equal(t, `server reported riskCategory "Medium" for score 61.00, corrected to "High"`, w.Error())
}
