// Package support holds the godog step definitions for the docscan CLI
// feature tests. Commands run in-process against a fresh cobra tree.
package support

import (
	"bytes"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/docscan/cmd/docscan/cmd"
)

// isolatedEnv lists the variables pointed at the scenario directory so no
// user config file leaks in.
var isolatedEnv = []string{"HOME", "XDG_CONFIG_HOME"}

// TestContext holds the state of one scenario.
type TestContext struct {
	LastCommand string
	LastOutput  string
	LastLogs    string
	LastError   error

	// TempDir is the scenario's working directory. Relative file names in
	// steps resolve against it.
	TempDir string

	Server             *httptest.Server
	LastHTTPStatusCode int
	LastHTTPResponse   []byte
	LastHTTPHeaders    map[string]string

	prevDir string
	prevEnv map[string]*string
}

// NewTestContext creates a temp directory, switches into it and isolates
// the config search path.
func NewTestContext() (*TestContext, error) {
	prevDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	tempDir, err := os.MkdirTemp("", "docscan-feature-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	if err := os.Chdir(tempDir); err != nil {
		_ = os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to enter temp directory: %w", err)
	}

	tc := &TestContext{
		TempDir: tempDir,
		prevDir: prevDir,
		prevEnv: make(map[string]*string, len(isolatedEnv)),
	}
	for _, key := range isolatedEnv {
		if v, ok := os.LookupEnv(key); ok {
			tc.prevEnv[key] = &v
		} else {
			tc.prevEnv[key] = nil
		}
		_ = os.Setenv(key, tempDir)
	}
	return tc, nil
}

// Path resolves name against the scenario directory.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

// Run executes docscan with the given command line.
func (testCtx *TestContext) Run(commandLine string) {
	args := strings.Fields(commandLine)
	if len(args) > 0 && args[0] == "docscan" {
		args = args[1:]
	}

	root := cmd.NewRootCommand()
	var out, logs bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs(args)

	testCtx.LastCommand = commandLine
	testCtx.LastError = root.Execute()
	testCtx.LastOutput = out.String()
	testCtx.LastLogs = logs.String()
}

// Cleanup stops the test server, restores the environment and removes the
// scenario directory.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.Server != nil {
		testCtx.Server.Close()
		testCtx.Server = nil
	}

	var errs []error
	for key, v := range testCtx.prevEnv {
		if v == nil {
			errs = append(errs, os.Unsetenv(key))
		} else {
			errs = append(errs, os.Setenv(key, *v))
		}
	}
	if err := os.Chdir(testCtx.prevDir); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, os.RemoveAll(testCtx.TempDir))
	return errors.Join(errs...)
}
