package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/andreybo/r2-file-manager/internal/errors"
	"github.com/andreybo/r2-file-manager/pkg/fsops"
	"github.com/andreybo/r2-file-manager/pkg/keypath"
	"github.com/andreybo/r2-file-manager/pkg/provider"
)

func respond(t *testing.T, err error) (*httptest.ResponseRecorder, apperrors.HTTPErrorResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/folders?path=/a", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	respondWithError(rec, req, err)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestRespondWithError_Default(t *testing.T) {
	ResetHTTPErrorResponder()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid path", fmt.Errorf("path %q: %w", "a//b", keypath.ErrInvalidPath), http.StatusBadRequest, "INVALID_PATH"},
		{"root delete", fsops.ErrForbiddenOperation, http.StatusForbidden, "FORBIDDEN"},
		{"missing key", &fsops.StoreError{Op: "head", Key: "a/x.png", Err: provider.ErrNotFound}, http.StatusNotFound, "NOT_FOUND"},
		{"store down", &fsops.StoreError{Op: "put", Key: "a/x.png", Err: provider.ErrProviderUnavailable}, http.StatusBadGateway, "PROVIDER_UNAVAILABLE"},
		{"unknown", assert.AnError, http.StatusInternalServerError, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := respond(t, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.err.Error(), body.Error.Message)
			assert.Equal(t, "req-42", body.Error.RequestID)
			assert.Equal(t, "/folders", body.Error.Path)
		})
	}
}

func TestSetHTTPErrorResponder(t *testing.T) {
	defer ResetHTTPErrorResponder()

	var captured error
	SetHTTPErrorResponder(func(w http.ResponseWriter, r *http.Request, err error) {
		captured = err
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	respondWithError(rec, httptest.NewRequest(http.MethodGet, "/tree", nil), fsops.ErrForbiddenOperation)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.ErrorIs(t, captured, fsops.ErrForbiddenOperation)

	SetHTTPErrorResponder(nil)
	rec, body := respond(t, fsops.ErrForbiddenOperation)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", body.Error.Code)
}

func TestResetHTTPErrorResponder(t *testing.T) {
	SetHTTPErrorResponder(func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusTeapot)
	})
	ResetHTTPErrorResponder()

	rec, body := respond(t, keypath.ErrInvalidFolderName)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_FOLDER_NAME", body.Error.Code)
}
