package integration

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mesh-intelligence/notata/pkg/experiment"
	"github.com/mesh-intelligence/notata/pkg/logbook"
	"github.com/mesh-intelligence/notata/pkg/types"
)

// TestMain builds the notata binary once before running tests.
func TestMain(m *testing.M) {
	projectRoot, err := FindProjectRoot()
	if err != nil {
		buildErr = err
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", "notata-test-*")
	if err != nil {
		buildErr = err
		os.Exit(1)
	}
	notataBin = filepath.Join(tmpDir, "notata")

	cmd := exec.Command("go", "build", "-o", notataBin, "./cmd/notata")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		buildErr = &BuildError{Err: err, Output: string(output)}
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func TestVersion(t *testing.T) {
	env := NewTestEnv(t)
	result := env.MustRunNotata("version")
	if !strings.HasPrefix(result.Stdout, "notata v") {
		t.Errorf("unexpected version output %q", result.Stdout)
	}
}

func TestShowRunFromConfiguredBaseDir(t *testing.T) {
	env := NewTestEnv(t)

	err := logbook.With("r1", logbook.Config{
		BaseDir: env.BaseDir,
		Params:  types.Params{"omega": 1.5},
	}, func(lb *logbook.Logbook) error {
		if err := lb.SaveArray("x", []float64{1, 2, 3}); err != nil {
			return err
		}
		return lb.SaveText("notes", "ok")
	})
	if err != nil {
		t.Fatalf("writing run: %v", err)
	}

	result := env.MustRunNotata("--json", "show", "r1")
	info := ParseJSON[RunInfo](t, result.Stdout)
	if info.Status != types.StatusComplete {
		t.Errorf("status = %q, want complete", info.Status)
	}
	if info.Params["omega"] != 1.5 {
		t.Errorf("omega = %v, want 1.5", info.Params["omega"])
	}
	if len(info.Arrays) != 1 || info.Arrays[0] != "x" {
		t.Errorf("arrays = %v, want [x]", info.Arrays)
	}
	if len(info.Artifacts) != 1 || info.Artifacts[0] != "notes" {
		t.Errorf("artifacts = %v, want [notes]", info.Artifacts)
	}
}

func TestExitCodes(t *testing.T) {
	env := NewTestEnv(t)

	if got := env.RunNotata("show", "missing").ExitCode; got != 1 {
		t.Errorf("show missing: exit code %d, want 1", got)
	}
	if got := env.RunNotata("experiment", filepath.Join(env.TempDir, "absent")).ExitCode; got != 1 {
		t.Errorf("experiment absent: exit code %d, want 1", got)
	}
	if got := env.RunNotata("show").ExitCode; got == 0 {
		t.Error("show without arguments should fail")
	}
}

func TestExperimentQuery(t *testing.T) {
	env := NewTestEnv(t)
	root := filepath.Join(env.TempDir, "sweep")

	e, err := experiment.Create(root, experiment.Config{Fields: []string{"lr"}})
	if err != nil {
		t.Fatalf("creating experiment: %v", err)
	}
	runs := []struct {
		id   string
		lr   float64
		fail bool
	}{
		{"lr1", 0.1, false},
		{"lr2", 0.2, false},
		{"lr3", 0.3, true},
	}
	for _, r := range runs {
		err := e.Run(r.id, types.Params{"lr": r.lr}, func(*logbook.Logbook) error {
			if r.fail {
				return errors.New("diverged")
			}
			return nil
		})
		if (err != nil) != r.fail {
			t.Fatalf("run %s: err = %v", r.id, err)
		}
	}

	result := env.MustRunNotata("--json", "query", root,
		"SELECT r.run_id FROM runs r JOIN experiment_index i USING (run_id) WHERE r.status = 'complete' ORDER BY i.lr")
	rows := ParseJSON[[]map[string]any](t, result.Stdout)
	if len(rows) != 2 || rows[0]["run_id"] != "lr1" || rows[1]["run_id"] != "lr2" {
		t.Errorf("unexpected rows %v", rows)
	}

	result = env.MustRunNotata("experiment", root)
	for _, want := range []string{"<Experiment 'sweep'>", "- lr1: complete", "- lr3: failed"} {
		if !strings.Contains(result.Stdout, want) {
			t.Errorf("experiment output missing %q:\n%s", want, result.Stdout)
		}
	}
}
