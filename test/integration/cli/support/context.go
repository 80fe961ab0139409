package support

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/qrscan/cmd/qrscan/cmd"
)

// TestContext holds the state for one scenario.
type TestContext struct {
	// Command execution state
	LastArgs     []string
	LastStdout   string
	LastStderr   string
	LastError    error
	LastExitCode int

	// Test environment
	TempDir  string
	savedEnv map[string]*string
}

// NewTestContext creates a scenario context with its own scratch directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "qrscan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{TempDir: tempDir, savedEnv: map[string]*string{}}, nil
}

// Cleanup restores environment variables and removes the scratch directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	for name, old := range testCtx.savedEnv {
		var err error
		if old == nil {
			err = os.Unsetenv(name)
		} else {
			err = os.Setenv(name, *old)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	testCtx.savedEnv = map[string]*string{}
	if err := os.RemoveAll(testCtx.TempDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove temp dir: %w", err))
	}
	return errors.Join(errs...)
}

// SetEnv sets an environment variable for the rest of the scenario.
func (testCtx *TestContext) SetEnv(name, value string) error {
	if _, saved := testCtx.savedEnv[name]; !saved {
		if old, ok := os.LookupEnv(name); ok {
			testCtx.savedEnv[name] = &old
		} else {
			testCtx.savedEnv[name] = nil
		}
	}
	return os.Setenv(name, value)
}

// Path resolves name inside the scenario directory.
func (testCtx *TestContext) Path(name string) string {
	return filepath.Join(testCtx.TempDir, name)
}

// RunCLI executes the root command in-process from the scenario directory.
func (testCtx *TestContext) RunCLI(args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := os.Chdir(testCtx.TempDir); err != nil {
		return err
	}
	defer func() { _ = os.Chdir(wd) }()

	var stdout, stderr bytes.Buffer
	root := cmd.NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	testCtx.LastArgs = args
	testCtx.LastError = root.Execute()
	testCtx.LastStdout = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastExitCode = 0
	if testCtx.LastError != nil {
		testCtx.LastExitCode = 1
	}
	return nil
}

func (testCtx *TestContext) describe() string {
	return fmt.Sprintf("args=%q exit=%d\nstdout:\n%s\nstderr:\n%s",
		strings.Join(testCtx.LastArgs, " "), testCtx.LastExitCode, testCtx.LastStdout, testCtx.LastStderr)
}
