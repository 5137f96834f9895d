package cmd

import (
	"bytes"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/docscan/internal/config"
	"github.com/MeKo-Tech/docscan/internal/testutil"
	"github.com/MeKo-Tech/docscan/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with no user configuration.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Chdir(dir)
	return dir
}

// execute runs a fresh command tree and returns what it printed to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, logs bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// documentFile writes the 200x100 white frame with a black 100x50 page in
// the middle and returns its path.
func documentFile(t *testing.T, dir string) string {
	t.Helper()
	img := testutil.DocumentImage(200, 100, image.Rect(50, 25, 150, 75), color.White, color.Black)
	path := filepath.Join(dir, "photo.png")
	testutil.SaveImage(t, img, path)
	return path
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "docscan", root.Use)
	assert.NotEmpty(t, root.Short)

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"estimate", "rectify", "filter", "ocr", "export", "batch", "serve", "config"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommandHelp(t *testing.T) {
	isolate(t)
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "flat, cropped page")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "--log-level")
}

func TestRootCommandVersion(t *testing.T) {
	isolate(t)
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, version.String()+"\n", out)
}

func TestRootCommandInvalidSettings(t *testing.T) {
	isolate(t)

	_, err := execute(t, "--log-level", "loud", "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")

	_, err = execute(t, "--format", "xml", "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")

	_, err = execute(t, "--config", "missing.yaml", "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file does not exist")

	_, err = execute(t, "--no-such-flag")
	assert.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	cfg := config.DefaultConfig()
	for level, want := range map[string]string{"debug": "DEBUG", "info": "INFO", "warn": "WARN", "error": "ERROR", "": "INFO"} {
		cfg.LogLevel = level
		assert.Equal(t, want, logLevel(&cfg).String(), level)
	}
	cfg.LogLevel = "error"
	cfg.Verbose = true
	assert.Equal(t, "DEBUG", logLevel(&cfg).String())
}

func TestDefaultOutput(t *testing.T) {
	assert.Equal(t, "shots/photo_scan.png", defaultOutput("shots/photo.jpg", "scan"))
	assert.Equal(t, "scan_bw.png", defaultOutput("camera", "bw"))
	assert.True(t, strings.HasSuffix(defaultOutput("doc.pdf", "scan"), "doc_scan.png"))
}
