package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/KanoComputing/aws-tools/internal/logging"
)

// credPrefix marks environment variables holding the credential
// context the test workload should run under. TEST_AWS_ACCESS_KEY_ID
// in the parent becomes AWS_ACCESS_KEY_ID in the child, so the
// workload can be tested as a different principal than the one
// deploying policy versions.
const credPrefix = "TEST_"

// ScriptRunner executes the external test oracle and reports its raw
// exit status.
type ScriptRunner struct {
	Path string
	Args []string

	// Log receives the workload's combined output line by line.
	// Optional; output is discarded when nil.
	Log logging.InternalLogger
}

func New(path string, args ...string) *ScriptRunner {
	return &ScriptRunner{Path: path, Args: args}
}

// Run launches the workload and returns its exit code. A nonzero exit
// is a normal verdict, not an error; only failing to launch (or a
// cancelled context) is reported as an error.
func (r *ScriptRunner) Run(ctx context.Context) (int, error) {
	cmd := exec.CommandContext(ctx, r.Path, r.Args...)
	cmd.Env = OverlayEnv(os.Environ())

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	r.forwardOutput(output.String())

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, fmt.Errorf("launching test oracle '%s': %w", r.Path, err)
	}
	return 0, nil
}

func (r *ScriptRunner) forwardOutput(output string) {
	if r.Log == nil {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		if line != "" {
			r.Log.Info("oracle: %s", line)
		}
	}
}

// OverlayEnv appends the unprefixed form of every TEST_AWS_* variable.
// os/exec keeps the last occurrence of a duplicated key, so the
// appended entries override the parent's own AWS_* credentials for the
// child only.
func OverlayEnv(env []string) []string {
	out := make([]string, len(env), len(env)+4)
	copy(out, env)
	for _, entry := range env {
		if !strings.HasPrefix(entry, credPrefix+"AWS_") {
			continue
		}
		out = append(out, strings.TrimPrefix(entry, credPrefix))
	}
	return out
}
