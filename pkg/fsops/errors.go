package fsops

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andreybo/r2-file-manager/pkg/keypath"
	"github.com/andreybo/r2-file-manager/pkg/output"
	"github.com/andreybo/r2-file-manager/pkg/provider"
)

var (
	// ErrFileTooLarge indicates a file larger than the upload ceiling.
	ErrFileTooLarge = errors.New("file too large")

	// ErrForbiddenOperation indicates an operation that is never allowed,
	// such as deleting the root folder.
	ErrForbiddenOperation = errors.New("forbidden operation")
)

// SizeError reports the size and ceiling behind ErrFileTooLarge.
type SizeError struct {
	Name  string
	Size  int64
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s: %d bytes exceeds limit of %d bytes", e.Name, e.Size, e.Limit)
}

func (e *SizeError) Unwrap() error { return ErrFileTooLarge }

// StoreError wraps a failure returned by the remote store for one key.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op, key string, err error) error {
	// Cancellation is not a store failure.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &StoreError{Op: op, Key: key, Err: err}
}

// ItemFailure is one failed unit of a batch.
type ItemFailure struct {
	Key     string `json:"key"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Reason returns the failure message.
func (f ItemFailure) Reason() string {
	if f.Err == nil {
		return f.Message
	}
	return f.Err.Error()
}

// PartialBatchFailure is returned by batch operations in which some units
// failed, unless the batch held a single failed unit. Units that succeeded
// are not rolled back.
type PartialBatchFailure struct {
	Op        string
	Succeeded int
	Failures  []ItemFailure
}

func (e *PartialBatchFailure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d succeeded, %d failed", e.Op, e.Succeeded, len(e.Failures))
	for i, f := range e.Failures {
		if i == 3 {
			fmt.Fprintf(&b, "; and %d more", len(e.Failures)-i)
			break
		}
		fmt.Fprintf(&b, "; %s: %s", f.Key, f.Reason())
	}
	return b.String()
}

// Classify maps an error to a stable output error code so presentation layers
// can show a specific message.
func Classify(err error) string {
	var partial *PartialBatchFailure
	switch {
	case err == nil:
		return ""
	case errors.As(err, &partial):
		return output.ErrCodePartialFailure
	case errors.Is(err, keypath.ErrInvalidPath):
		return output.ErrCodeInvalidPath
	case errors.Is(err, keypath.ErrInvalidFolderName):
		return output.ErrCodeInvalidFolderName
	case errors.Is(err, ErrFileTooLarge):
		return output.ErrCodeFileTooLarge
	case errors.Is(err, ErrForbiddenOperation):
		return output.ErrCodeForbidden
	case provider.IsNotFound(err), provider.IsBucketNotFound(err):
		return output.ErrCodeNotFound
	case provider.IsAccessDenied(err), provider.IsInvalidCredentials(err):
		return output.ErrCodeAccessDenied
	case provider.IsThrottled(err):
		return output.ErrCodeThrottled
	case provider.IsProviderUnavailable(err):
		return output.ErrCodeProviderUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return output.ErrCodeTimeout
	default:
		return output.ErrCodeInternal
	}
}
