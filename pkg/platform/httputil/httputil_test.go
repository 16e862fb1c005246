package httputil_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		code   dErrors.Code
		status int
	}{
		{dErrors.CodeBadRequest, http.StatusBadRequest},
		{dErrors.CodeInvalidInput, http.StatusBadRequest},
		{dErrors.CodeValidation, http.StatusBadRequest},
		{dErrors.CodeUnauthorized, http.StatusUnauthorized},
		{dErrors.CodeForbidden, http.StatusForbidden},
		{dErrors.CodeNotFound, http.StatusNotFound},
		{dErrors.CodeConflict, http.StatusConflict},
		{dErrors.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			httputil.WriteError(rec, dErrors.New(tt.code, "message"))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.code), body["error"])
		})
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.WriteError(rec, dErrors.Wrap(errors.New("pq: relation missing"), dErrors.CodeInternal, "loading record"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(dErrors.CodeInternal), body["error"])
	assert.Empty(t, body["error_description"])
}

func TestWriteErrorIncludesClientDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.WriteError(rec, dErrors.New(dErrors.CodeNotFound, "validation record not found"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation record not found", body["error_description"])
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	type payload struct {
		Value string `json:"value"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"value":"x","bogus":1}`))
	rec := httptest.NewRecorder()

	_, ok := httputil.DecodeJSON[payload](rec, req)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Value string `json:"value"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"value":"x"}`))
	rec := httptest.NewRecorder()

	got, ok := httputil.DecodeJSON[payload](rec, req)
	require.True(t, ok)
	assert.Equal(t, "x", got.Value)
}
