package config

import (
	"os"
	"path/filepath"

	"github.com/ekisa-team/toolvision/internal/envvar"
	"github.com/ekisa-team/toolvision/internal/xfs"
)

// WorkDir returns the directory datasets and runs are resolved against.
// Precedence:
// 1. TOOLVISION_WORK_DIR environment variable.
// 2. WorkDir field in the config.
// 3. The current directory.
func (c *Config) WorkDir() string {
	if p := os.Getenv(envvar.ToolvisionWorkDir); p != "" {
		return xfs.ExpandTilde(p)
	}
	if c.Storage.WorkDir != "" {
		return xfs.ExpandTilde(c.Storage.WorkDir)
	}
	return "."
}

// DatasetDir returns the expected local dataset directory.
func (c *Config) DatasetDir() string {
	return c.resolve(c.Dataset.Dir)
}

// DownloadDir returns the directory a missing dataset is downloaded into.
func (c *Config) DownloadDir() string {
	return c.resolve(c.Dataset.DownloadDir)
}

// RunsDir returns the project directory training runs are written under.
func (c *Config) RunsDir() string {
	return c.resolve(c.Storage.RunsDir)
}

// resolve anchors relative paths at the work dir.
func (c *Config) resolve(p string) string {
	p = xfs.ExpandTilde(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.WorkDir(), p)
}
