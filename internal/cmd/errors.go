package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"go.uber.org/zap"

	"github.com/andreybo/r2-file-manager/internal/observability"
	"github.com/andreybo/r2-file-manager/pkg/fsops"
	"github.com/andreybo/r2-file-manager/pkg/output"
)

// opFailed logs err and wraps it with the exit code matching its class.
func opFailed(message string, err error) error {
	code := fsops.Classify(err)
	observability.CLILogger.Error(message, zap.String("code", code), zap.Error(err))
	return exitError(exitCodeFor(code), message, err)
}

func exitCodeFor(code string) int {
	switch code {
	case output.ErrCodeInvalidPath, output.ErrCodeInvalidFolderName,
		output.ErrCodeForbidden, output.ErrCodeFileTooLarge:
		return foundry.ExitInvalidArgument
	case output.ErrCodeNotFound:
		return foundry.ExitFileNotFound
	case output.ErrCodePartialFailure:
		return foundry.ExitFileWriteError
	case output.ErrCodeTimeout:
		return foundry.ExitSignalInt
	default:
		return foundry.ExitExternalServiceUnavailable
	}
}
