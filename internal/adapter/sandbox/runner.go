// package sandbox executes untrusted submissions inside disposable Docker
// containers built from a pre-provisioned grader base image. The base image
// carries the language runtime and no network access; each run bakes the
// submission and its test harness into a throwaway image keyed by a
// collision-resistant run key.
package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gitlab.com/grader-api/internal/config"
	"gitlab.com/grader-api/internal/core/ports/primary"
	"gitlab.com/grader-api/internal/core/ports/secondary"
	"gitlab.com/grader-api/internal/static/errs"
)

var _ secondary.CodeRunner = (*DockerRunner)(nil)

// execFunc runs one external command to completion and returns its combined
// output. Swapped out in tests.
type execFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// DockerRunner implements the CodeRunner interface by shelling out to the
// docker CLI.
type DockerRunner struct {
	cfg     *config.GraderConfig
	logger  primary.Logger
	workDir string
	execCmd execFunc
}

// NewDockerRunner creates a new Docker-backed code runner. Staged files are
// written under workDir; pass "" to use the system temp directory.
func NewDockerRunner(cfg *config.GraderConfig, logger primary.Logger, workDir string) *DockerRunner {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &DockerRunner{
		cfg:     cfg,
		logger:  logger,
		workDir: workDir,
		execCmd: runCommand,
	}
}

// Run grades one submission: stage files, bake the grading image, run it to
// completion, extract the result artifact, and tear everything down. The
// teardown happens on every path, success or failure.
func (r *DockerRunner) Run(ctx context.Context, code, testCode, key string) (output string, err error) {
	stageDir, err := os.MkdirTemp(r.workDir, "submission-"+key+"-")
	if err != nil {
		return "", fmt.Errorf("%w: failed to stage files: %v", errs.ExecutionFailed, err)
	}
	defer os.RemoveAll(stageDir)

	codeFile := filepath.Join(stageDir, "code.py")
	testFile := filepath.Join(stageDir, "test-code.py")
	if err := os.WriteFile(codeFile, []byte(code), 0o600); err != nil {
		return "", fmt.Errorf("%w: failed to write code file: %v", errs.ExecutionFailed, err)
	}
	if err := os.WriteFile(testFile, []byte(testCode), 0o600); err != nil {
		return "", fmt.Errorf("%w: failed to write test file: %v", errs.ExecutionFailed, err)
	}

	image := "submission-image-" + key
	scratch := image + "-tmp"
	runner := image + "-run"

	// Teardown removes every ephemeral artifact regardless of which step
	// failed. Runs with a fresh context so a deadline hit during the run
	// step cannot leave containers behind.
	defer func() {
		cleanupCtx := context.Background()
		r.remove(cleanupCtx, "rm", "-fv", scratch)
		r.remove(cleanupCtx, "rm", "-fv", runner)
		r.remove(cleanupCtx, "image", "rm", "-f", image)
	}()

	// Build: bake submission and harness into a keyed image.
	buildSteps := [][]string{
		{"create", "--name", scratch, r.cfg.GraderImage},
		{"cp", codeFile, scratch + ":/app/submission/code.py"},
		{"cp", testFile, scratch + ":/app/submission/test-code.py"},
		{"commit", scratch, image},
	}
	for _, args := range buildSteps {
		if out, stepErr := r.execCmd(ctx, "docker", args...); stepErr != nil {
			return "", fmt.Errorf("%w: docker %s: %v: %s", errs.ExecutionFailed, args[0], stepErr, out)
		}
	}

	// Run: execute the image to completion under the configured deadline.
	// A deadline hit yields empty output, which grades as an infinite loop.
	runCtx := ctx
	if r.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.RunTimeout)
		defer cancel()
	}
	if out, runErr := r.execCmd(runCtx, "docker", "run", "--name", runner, "--network", "none", image); runErr != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			r.logger.Warn("Sandbox run hit deadline", "key", key)
			return "", nil
		}
		return "", fmt.Errorf("%w: docker run: %v: %s", errs.ExecutionFailed, runErr, out)
	}

	// Extract: copy the result artifact back out and read it.
	resultFile := filepath.Join(stageDir, "result.data")
	if out, cpErr := r.execCmd(ctx, "docker", "cp", runner+":/app/submission/result.data", resultFile); cpErr != nil {
		return "", fmt.Errorf("%w: docker cp result: %v: %s", errs.ExecutionFailed, cpErr, out)
	}

	raw, err := os.ReadFile(resultFile)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read result artifact: %v", errs.ExecutionFailed, err)
	}

	return strings.TrimSpace(string(raw)), nil
}

func (r *DockerRunner) remove(ctx context.Context, args ...string) {
	if out, err := r.execCmd(ctx, "docker", args...); err != nil {
		// "No such container/image" is the common case when an early step
		// failed; anything else deserves a log line.
		msg := strings.ToLower(string(out))
		if !strings.Contains(msg, "no such") {
			r.logger.Warn("Sandbox teardown step failed", "args", strings.Join(args, " "), "error", err)
		}
	}
}
