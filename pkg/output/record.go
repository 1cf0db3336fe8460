// Package output provides JSONL output for file manager commands.
//
// Output is structured as typed record envelopes containing objects,
// folders, mutation results, errors and summaries. Each line is a
// self-contained JSON object that can be parsed independently.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: r2fm.<type>.v<version>
const (
	// TypeObject identifies file listing records.
	TypeObject = "r2fm.object.v1"

	// TypeFolder identifies folder records.
	TypeFolder = "r2fm.folder.v1"

	// TypeMutation identifies per-item upload, mkdir and delete results.
	TypeMutation = "r2fm.mutation.v1"

	// TypeURL identifies presigned and public URL records.
	TypeURL = "r2fm.url.v1"

	// TypeError identifies error records.
	TypeError = "r2fm.error.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "r2fm.summary.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line of JSONL output contains a Record with a type-specific
// payload in the Data field. The type field determines how to
// interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "r2fm.object.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// JobID is the correlation ID for this command invocation.
	JobID string `json:"job_id"`

	// Provider identifies the storage provider (e.g., "s3", "file").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// ObjectRecord is the data payload for one file in a listing.
type ObjectRecord struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ParentPath   string    `json:"parent_path"`
}

// FolderRecord is the data payload for one folder.
type FolderRecord struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Depth int    `json:"depth"`
}

// Mutation operations.
const (
	OpUpload = "upload"
	OpMkdir  = "mkdir"
	OpDelete = "delete"
)

// MutationRecord is the data payload for one unit of a mutation.
type MutationRecord struct {
	Op        string `json:"op"`
	Key       string `json:"key"`
	OK        bool   `json:"ok"`
	Size      int64  `json:"size,omitempty"`
	PublicURL string `json:"public_url,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// URLRecord is the data payload for URL issuance.
type URLRecord struct {
	Key          string    `json:"key" yaml:"key"`
	PresignedURL string    `json:"presigned_url" yaml:"presigned_url"`
	PublicURL    string    `json:"public_url,omitempty" yaml:"public_url,omitempty"`
	ExpiresAt    time.Time `json:"expires_at" yaml:"expires_at"`
}

// ErrorRecord is the data payload for errors.
//
// Errors are emitted as records rather than failing the entire command,
// allowing partial results when some operations fail.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Key is the object key related to this error, if applicable.
	Key string `json:"key,omitempty"`

	// Path is the logical path being processed when the error occurred.
	Path string `json:"path,omitempty"`

	// Details contains additional error context.
	Details any `json:"details,omitempty"`
}

// Error codes for ErrorRecord.
const (
	// ErrCodeInvalidPath indicates a malformed logical path or key.
	ErrCodeInvalidPath = "INVALID_PATH"

	// ErrCodeInvalidFolderName indicates a folder name empty after sanitizing.
	ErrCodeInvalidFolderName = "INVALID_FOLDER_NAME"

	// ErrCodeFileTooLarge indicates a file over the upload ceiling.
	ErrCodeFileTooLarge = "FILE_TOO_LARGE"

	// ErrCodeForbidden indicates a refused operation, such as deleting the root.
	ErrCodeForbidden = "FORBIDDEN"

	// ErrCodeAccessDenied indicates permission failure.
	ErrCodeAccessDenied = "ACCESS_DENIED"

	// ErrCodeNotFound indicates the object or bucket was not found.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeTimeout indicates an operation timed out or was canceled.
	ErrCodeTimeout = "TIMEOUT"

	// ErrCodeThrottled indicates rate limiting.
	ErrCodeThrottled = "THROTTLED"

	// ErrCodeProviderUnavailable indicates the store could not be reached.
	ErrCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"

	// ErrCodePartialFailure indicates a batch where some units failed.
	ErrCodePartialFailure = "PARTIAL_FAILURE"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal = "INTERNAL"
)

// SummaryRecord is the data payload for final summaries.
type SummaryRecord struct {
	// Op is the command that produced the summary (ls, tree, upload, rm).
	Op string `json:"op"`

	// Folders is the number of folders reported.
	Folders int64 `json:"folders"`

	// Files is the number of files reported or processed.
	Files int64 `json:"files"`

	// Bytes is the cumulative size of reported files, markers excluded.
	Bytes int64 `json:"bytes"`

	// Succeeded and Failed count mutation units.
	Succeeded int64 `json:"succeeded,omitempty"`
	Failed    int64 `json:"failed,omitempty"`

	// Duration is the total command duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
