package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/andreybo/r2-file-manager/pkg/output"
	"github.com/andreybo/r2-file-manager/pkg/provider/memory"
)

// resetFlags restores every flag of c and its subcommands to its default so
// consecutive executions in one test binary do not leak state.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// setContext gives every command ctx; cobra keeps a subcommand's context
// from an earlier Execute otherwise.
func setContext(c *cobra.Command, ctx context.Context) {
	c.SetContext(ctx)
	for _, sub := range c.Commands() {
		setContext(sub, ctx)
	}
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLIContext(t, context.Background(), args...)
}

func runCLIContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)

	resetFlags(rootCmd)
	setContext(rootCmd, ctx)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

// memoryBucket registers a fresh in-process bucket named after the test.
func memoryBucket(t *testing.T, objects map[string]string, opts ...memory.Option) (*memory.Provider, []string) {
	t.Helper()
	name := strings.NewReplacer("/", "-", " ", "-").Replace(strings.ToLower(t.Name()))
	p := memory.New(name, opts...)
	p.Seed(objects)

	memoryMu.Lock()
	memoryStores[name] = p
	memoryMu.Unlock()
	t.Cleanup(func() {
		memoryMu.Lock()
		delete(memoryStores, name)
		memoryMu.Unlock()
	})
	return p, []string{"--backend", "memory", "--bucket", name}
}

func withArgs(base []string, args ...string) []string {
	return append(append([]string{}, args...), base...)
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var ee *ExitError
	require.True(t, errors.As(err, &ee), "expected *ExitError, got %T: %v", err, err)
	return ee.Code
}

// jsonlRecords splits JSONL output into records.
func jsonlRecords(t *testing.T, out string) []output.Record {
	t.Helper()
	var recs []output.Record
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var r output.Record
		require.NoError(t, json.Unmarshal([]byte(line), &r), line)
		recs = append(recs, r)
	}
	return recs
}

func recordsOfType[T any](t *testing.T, recs []output.Record, typ string) []T {
	t.Helper()
	var out []T
	for _, r := range recs {
		if r.Type != typ {
			continue
		}
		var v T
		require.NoError(t, json.Unmarshal(r.Data, &v))
		out = append(out, v)
	}
	return out
}
