// Package integration runs the notata binary against experiment directories
// written through the library.
package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

var (
	// notataBin is the path to the built notata binary.
	notataBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot finds the project root by walking up and looking for go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// TestEnv provides an isolated environment with its own config and base
// directory.
type TestEnv struct {
	t       *testing.T
	TempDir string
	Config  string
	BaseDir string
}

// NewTestEnv creates a new isolated test environment. config.yaml points
// base_dir at BaseDir.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build notata: %v", buildErr)
	}
	if notataBin == "" {
		t.Fatal("notata binary not built (notataBin is empty)")
	}

	tempDir := t.TempDir()
	baseDir := filepath.Join(tempDir, "outputs")
	configDir := filepath.Join(tempDir, "config")

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	configContent := "base_dir: " + baseDir + "\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	return &TestEnv{
		t:       t,
		TempDir: tempDir,
		Config:  configDir,
		BaseDir: baseDir,
	}
}

// CmdResult holds the result of a notata command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunNotata executes the notata CLI with the given arguments.
func (e *TestEnv) RunNotata(args ...string) CmdResult {
	e.t.Helper()

	allArgs := append([]string{"--config-dir", e.Config}, args...)
	cmd := exec.Command(notataBin, allArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			e.t.Fatalf("failed to run notata: %v", err)
		}
	}

	return CmdResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// MustRunNotata executes the notata CLI and fails the test if it returns
// non-zero.
func (e *TestEnv) MustRunNotata(args ...string) CmdResult {
	e.t.Helper()
	result := e.RunNotata(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("notata %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// ParseJSON parses JSON output into the target type.
func ParseJSON[T any](t *testing.T, jsonStr string) T {
	t.Helper()
	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", jsonStr, err)
	}
	return result
}

// RunInfo is the --json output of notata show.
type RunInfo struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	Meta      map[string]any `json:"meta"`
	Params    map[string]any `json:"params"`
	Arrays    []string       `json:"arrays"`
	Artifacts []string       `json:"artifacts"`
	Plots     []string       `json:"plots"`
}
