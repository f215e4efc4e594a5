package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestPatterns_DefaultTargets runs the full pipeline against a fixture
// tree and checks the machine contract: exactly one pattern line on
// stdout, nothing else.
func TestPatterns_DefaultTargets(t *testing.T) {
	root := writeFixtureProject(t)

	stdout, stderr, exitCode := runCLI(t, "", "patterns", "--root", root)

	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0\nstderr: %s", exitCode, stderr)
	}
	if stdout != "layer/**,test/e2e/**\n" {
		t.Errorf("stdout = %q, want %q", stdout, "layer/**,test/e2e/**\n")
	}
}

// TestPatterns_ConfigTargets verifies the project config file replaces
// the default watched targets.
func TestPatterns_ConfigTargets(t *testing.T) {
	root := writeFixtureProject(t)

	config := "targets:\n  - name: layer\n    roots:\n      - layer\n"
	if err := os.WriteFile(filepath.Join(root, ".impactgate.yaml"), []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	stdout, stderr, exitCode := runCLI(t, "", "patterns", "--root", root)

	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0\nstderr: %s", exitCode, stderr)
	}
	if stdout != "layer/**\n" {
		t.Errorf("stdout = %q, want %q", stdout, "layer/**\n")
	}
}

// TestPatterns_FailureKeepsStdoutEmpty verifies the conservative CI
// fallback: when analysis fails, stdout stays empty and the exit code is
// nonzero, so a capture like PATTERNS=$(impactgate patterns) never gates
// on garbage.
func TestPatterns_FailureKeepsStdoutEmpty(t *testing.T) {
	stdout, stderr, exitCode := runCLI(t, "", "patterns", "--root", "/no/such/impactgate/root")

	if exitCode == 0 {
		t.Error("exit code = 0, want nonzero")
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want empty", stdout)
	}
	if !strings.Contains(stderr, "Error") {
		t.Errorf("stderr should explain the failure, got: %s", stderr)
	}
}

// TestPatterns_GitHubOutput verifies --github-output appends the pattern
// line to the file GitHub Actions points at via $GITHUB_OUTPUT.
func TestPatterns_GitHubOutput(t *testing.T) {
	root := writeFixtureProject(t)
	outputFile := filepath.Join(t.TempDir(), "github_output")

	cmd := exec.Command(cliBinary, "patterns", "--root", root, "--github-output")
	cmd.Env = append(os.Environ(), "GITHUB_OUTPUT="+outputFile)

	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("patterns --github-output failed: %v", err)
	}
	if string(out) != "layer/**,test/e2e/**\n" {
		t.Errorf("stdout = %q, want pattern line", string(out))
	}

	written, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("read %s: %v", outputFile, err)
	}
	if !strings.Contains(string(written), "patterns=layer/**,test/e2e/**") {
		t.Errorf("GITHUB_OUTPUT content = %q, want patterns entry", string(written))
	}
}
