// Package errors maps domain errors onto the HTTP error envelope.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	gferrors "github.com/fulmenhq/gofulmen/errors"

	"github.com/andreybo/r2-file-manager/pkg/fsops"
	"github.com/andreybo/r2-file-manager/pkg/output"
)

// HTTP-only error codes. Domain codes come from fsops.Classify.
const (
	CodeNotFound           = output.ErrCodeNotFound
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeBadRequest         = "BAD_REQUEST"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// HTTPErrorResponse is the JSON body of every error response.
type HTTPErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the wire form of a gofulmen error envelope.
type ErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Path      string         `json:"path,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// requestIDHeader is set by the request id middleware.
const requestIDHeader = "X-Request-ID"

// StatusFor returns the HTTP status for a classified error code.
func StatusFor(code string) int {
	switch code {
	case output.ErrCodeInvalidPath, output.ErrCodeInvalidFolderName, CodeBadRequest:
		return http.StatusBadRequest
	case output.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case output.ErrCodeForbidden, output.ErrCodeAccessDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case output.ErrCodeThrottled:
		return http.StatusTooManyRequests
	case output.ErrCodeProviderUnavailable:
		return http.StatusBadGateway
	case output.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case output.ErrCodePartialFailure:
		return http.StatusMultiStatus
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewEnvelope starts an envelope for r, carrying its request id as the
// correlation id and its URL path.
func NewEnvelope(r *http.Request, code, message string) *gferrors.ErrorEnvelope {
	env := gferrors.NewErrorEnvelope(code, message)
	if r == nil {
		return env
	}
	if id := r.Header.Get(requestIDHeader); id != "" {
		env = env.WithCorrelationID(id)
	}
	if r.URL != nil {
		env = env.WithPath(r.URL.Path)
	}
	return env
}

// RespondWithError classifies err and writes the matching envelope.
// A *fsops.PartialBatchFailure carries its counts in the envelope context
// and the individual failures in the details.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	code := fsops.Classify(err)
	if code == output.ErrCodeInternal {
		code = CodeInternal
	}
	env := NewEnvelope(r, code, err.Error())

	var partial *fsops.PartialBatchFailure
	if stderrors.As(err, &partial) {
		keys := make([]string, 0, len(partial.Failures))
		for _, f := range partial.Failures {
			keys = append(keys, f.Key)
		}
		env, _ = env.WithContext(map[string]interface{}{
			"op":          partial.Op,
			"succeeded":   partial.Succeeded,
			"failed":      len(partial.Failures),
			"failed_keys": keys,
		})
		env = env.WithDetails(map[string]interface{}{"failures": partial.Failures})
	}

	WriteEnvelope(w, env, StatusFor(code))
}

// WriteError writes an error envelope with an explicit status and code.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	env := NewEnvelope(r, code, message)
	if details != nil {
		env = env.WithDetails(details)
	}
	WriteEnvelope(w, env, status)
}

// WriteEnvelope renders env with status. Context entries are merged into
// the details; details win on key collisions.
func WriteEnvelope(w http.ResponseWriter, env *gferrors.ErrorEnvelope, status int) {
	body := HTTPErrorResponse{Error: ErrorBody{
		Code:      env.Code,
		Message:   env.Message,
		RequestID: env.CorrelationID,
		Path:      env.Path,
		Timestamp: env.Timestamp,
	}}
	if len(env.Context) > 0 || len(env.Details) > 0 {
		body.Error.Details = make(map[string]any, len(env.Context)+len(env.Details))
		for k, v := range env.Context {
			body.Error.Details[k] = v
		}
		for k, v := range env.Details {
			body.Error.Details[k] = v
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// NotFoundHandler answers unmatched routes.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusNotFound, CodeNotFound, "route not found: "+r.URL.Path, nil)
}

// MethodNotAllowedHandler answers a known route with the wrong method.
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method "+r.Method+" not allowed on "+r.URL.Path, nil)
}
