package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/toolvision/internal/checkpoint"
	"github.com/ekisa-team/toolvision/internal/envvar"
)

func TestSkipWithoutRuns(t *testing.T) {
	assert.NoError(t, skipWithoutRuns(nil))
	assert.NoError(t, skipWithoutRuns(checkpoint.ErrNoRuns))
	assert.NoError(t, skipWithoutRuns(fmt.Errorf("resume: %w", checkpoint.ErrNoRuns)))

	failed := errors.New("training failed")
	assert.Equal(t, failed, skipWithoutRuns(failed))
}

func TestResumeCommand_NoRunsExitsCleanly(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs an executable shell script on PATH")
	}

	bin := t.TempDir()
	yolo := filepath.Join(bin, "yolo")
	require.NoError(t, os.WriteFile(yolo, []byte("#!/bin/sh\necho should not run >&2\nexit 1\n"), 0o755))

	work := t.TempDir()
	t.Setenv("PATH", bin)
	t.Setenv(envvar.ToolvisionWorkDir, work)
	t.Setenv(envvar.CUDAVisibleDevices, "-1")

	rootCmd.SetArgs([]string{
		"resume",
		"--config", filepath.Join(work, "missing.yaml"),
		"--env-file", filepath.Join(work, "missing.env"),
	})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.NoDirExists(t, filepath.Join(work, "surgical_tool_training_runs", "yolo11m_cholec80_run1"))
}
