package sandbox

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"gitlab.com/grader-api/internal/config"
	"gitlab.com/grader-api/internal/static/errs"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Warn(msg string, args ...interface{})  {}

func testRunner(t *testing.T, exec execFunc) *DockerRunner {
	t.Helper()
	cfg := &config.GraderConfig{
		GraderImage: "grader-image",
		RunTimeout:  time.Second,
	}
	r := NewDockerRunner(cfg, nopLogger{}, t.TempDir())
	r.execCmd = exec
	return r
}

// fakeDocker records every docker invocation and simulates the build, run
// and extract steps. The result artifact is materialized on "docker cp ...
// result.data" so the runner can read it back.
type fakeDocker struct {
	calls       [][]string
	result      string
	failOn      string
	failExtract bool
	runBlocks   bool
}

func (f *fakeDocker) exec(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	sub := args[0]
	extract := sub == "cp" && strings.Contains(args[1], "result.data")

	if sub == f.failOn || (extract && f.failExtract) {
		return []byte("simulated failure"), errors.New("exit status 1")
	}

	switch {
	case sub == "run" && f.runBlocks:
		<-ctx.Done()
		return nil, ctx.Err()
	case extract:
		// The extract step copies out of the container into the stage dir.
		dest := args[2]
		if err := os.WriteFile(dest, []byte(f.result), 0o600); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func TestDockerRunner_Run_FullProtocol(t *testing.T) {
	docker := &fakeDocker{result: "OK\n"}
	runner := testRunner(t, docker.exec)

	out, err := runner.Run(context.Background(), "print(1)", "assert True", "key1")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out != "OK" {
		t.Errorf("Run() output = %q, want trimmed %q", out, "OK")
	}

	var subcommands []string
	for _, call := range docker.calls {
		subcommands = append(subcommands, call[0])
	}
	want := []string{"create", "cp", "cp", "commit", "run", "cp", "rm", "rm", "image"}
	if len(subcommands) != len(want) {
		t.Fatalf("docker calls = %v, want %v", subcommands, want)
	}
	for i := range want {
		if subcommands[i] != want[i] {
			t.Fatalf("docker call %d = %q, want %q (all: %v)", i, subcommands[i], want[i], subcommands)
		}
	}
}

func TestDockerRunner_Run_NamesAreKeyedAndIsolated(t *testing.T) {
	docker := &fakeDocker{result: "OK"}
	runner := testRunner(t, docker.exec)

	if _, err := runner.Run(context.Background(), "code", "tests", "key1"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, call := range docker.calls {
		if call[0] == "run" {
			joined := strings.Join(call, " ")
			if !strings.Contains(joined, "--network none") {
				t.Errorf("run step %v lacks --network none", call)
			}
			if !strings.Contains(joined, "submission-image-key1") {
				t.Errorf("run step %v does not use the keyed image", call)
			}
		}
	}
}

func TestDockerRunner_Run_BuildFailure(t *testing.T) {
	docker := &fakeDocker{failOn: "commit"}
	runner := testRunner(t, docker.exec)

	_, err := runner.Run(context.Background(), "code", "tests", "key1")
	if !errors.Is(err, errs.ExecutionFailed) {
		t.Fatalf("Run() error = %v, want wrapped ExecutionFailed", err)
	}

	// Teardown must still run after the failed build step.
	var teardown int
	for _, call := range docker.calls {
		if call[0] == "rm" || call[0] == "image" {
			teardown++
		}
	}
	if teardown != 3 {
		t.Errorf("teardown steps = %d, want 3", teardown)
	}
}

func TestDockerRunner_Run_DeadlineYieldsEmptyOutput(t *testing.T) {
	docker := &fakeDocker{runBlocks: true}
	runner := testRunner(t, docker.exec)
	runner.cfg.RunTimeout = 20 * time.Millisecond

	out, err := runner.Run(context.Background(), "while True: pass", "tests", "key1")
	if err != nil {
		t.Fatalf("Run() error = %v, want nil on deadline", err)
	}
	if out != "" {
		t.Errorf("Run() output = %q, want empty output for a timed-out run", out)
	}
}

func TestDockerRunner_Run_ExtractFailure(t *testing.T) {
	docker := &fakeDocker{failExtract: true}
	runner := testRunner(t, docker.exec)

	_, err := runner.Run(context.Background(), "code", "tests", "key1")
	if !errors.Is(err, errs.ExecutionFailed) {
		t.Fatalf("Run() error = %v, want wrapped ExecutionFailed", err)
	}
}
