package cmd

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreybo/r2-file-manager/internal/config"
	"github.com/andreybo/r2-file-manager/pkg/output"
)

func TestSetVersionInfo(t *testing.T) {
	orig := versionInfo
	defer func() { versionInfo = orig }()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{name: "set all values", version: "1.0.0", commit: "abc123", buildDate: "2024-01-15"},
		{name: "set dev version", version: "dev", commit: "HEAD", buildDate: "unknown"},
		{name: "set empty values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
		})
	}
}

func TestGetAppIdentity(t *testing.T) {
	t.Run("returns nil before init", func(t *testing.T) {
		orig := appIdentity
		appIdentity = nil
		defer func() { appIdentity = orig }()

		assert.Nil(t, GetAppIdentity())
	})

	t.Run("returns identity after a command ran", func(t *testing.T) {
		_, err := runCLI(t, "version")
		require.NoError(t, err)

		id := GetAppIdentity()
		require.NotNil(t, id)
		assert.Equal(t, config.DefaultIdentity, *id)
	})
}

func TestExitError(t *testing.T) {
	base := errors.New("boom")
	err := exitError(32, "Something failed", base)

	assert.Contains(t, err.Error(), "Something failed")
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "exit code 32")
	assert.ErrorIs(t, err, base)

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, 32, exitCode(t, wrapped))
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{output.ErrCodeInvalidPath, foundry.ExitInvalidArgument},
		{output.ErrCodeInvalidFolderName, foundry.ExitInvalidArgument},
		{output.ErrCodeForbidden, foundry.ExitInvalidArgument},
		{output.ErrCodeFileTooLarge, foundry.ExitInvalidArgument},
		{output.ErrCodeNotFound, foundry.ExitFileNotFound},
		{output.ErrCodePartialFailure, foundry.ExitFileWriteError},
		{output.ErrCodeTimeout, foundry.ExitSignalInt},
		{output.ErrCodeThrottled, foundry.ExitExternalServiceUnavailable},
		{output.ErrCodeInternal, foundry.ExitExternalServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.code))
		})
	}
}

func TestStoreOverrides_OnlyChangedFlags(t *testing.T) {
	_, base := memoryBucket(t, nil)
	_, err := runCLI(t, withArgs(base, "ls")...)
	require.NoError(t, err)

	overrides := storeOverrides(lsCmd)
	store, ok := overrides["store"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "memory", store["backend"])
	assert.NotContains(t, store, "region")
	assert.NotContains(t, store, "endpoint")
}

func TestInvalidBackend(t *testing.T) {
	_, err := runCLI(t, "ls", "--backend", "ftp")
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(t, err))
}

func TestVersionCommand(t *testing.T) {
	orig := versionInfo
	defer func() { versionInfo = orig }()
	SetVersionInfo("1.2.3", "abc", "2026-01-01")

	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "r2fm 1.2.3\n"))
	assert.Contains(t, out, "commit:     abc")
}
