package judge

import (
	"context"
	"io"
	"os"
	"testing"
	"time"
)

// TestMain re-executes this test binary as the program under judgment
// when GO_WANT_HELPER_PROCESS is set, the same self-exec pattern the
// runner package's tests use for exec.Cmd-driven scenarios.
func TestMain(m *testing.M) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") == "1" {
		runHelperProcess()
		return
	}
	os.Exit(m.Run())
}

func runHelperProcess() {
	defer os.Exit(0)
	switch os.Getenv("HELPER_MODE") {
	case "ac":
		io.Copy(os.Stdout, os.Stdin)
	case "wa":
		os.Stdout.WriteString("wrong\n")
	case "rte":
		os.Exit(3)
	case "tle":
		for {
		}
	case "mle":
		buf := make([][]byte, 0)
		for i := 0; i < 2000; i++ {
			buf = append(buf, make([]byte, 1<<16))
			buf[len(buf)-1][0] = 1
		}
		time.Sleep(2 * time.Second)
	}
}

func withHelperMode(t *testing.T, mode string) []string {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("HELPER_MODE", mode)
	return []string{os.Args[0]}
}

func TestJudgeOne_AnswerCorrect(t *testing.T) {
	argv := withHelperMode(t, "ac")
	tc := TestCase{Input: IoBlock{"hello"}, Expected: IoBlock{"hello"}}
	limits := Limits{TimeSeconds: 5, MemoryBytes: 64 << 20}

	result, err := JudgeOne(context.Background(), argv, tc, limits, Default())
	if err != nil {
		t.Fatalf("JudgeOne error: %v", err)
	}
	if result.Verdict != AnswerCorrect {
		t.Fatalf("verdict = %v, want AnswerCorrect", result.Verdict)
	}
}

func TestJudgeOne_WrongAnswer(t *testing.T) {
	argv := withHelperMode(t, "wa")
	tc := TestCase{Input: IoBlock{""}, Expected: IoBlock{"right"}}
	limits := Limits{TimeSeconds: 5, MemoryBytes: 64 << 20}

	result, err := JudgeOne(context.Background(), argv, tc, limits, Default())
	if err != nil {
		t.Fatalf("JudgeOne error: %v", err)
	}
	if result.Verdict != WrongAnswer {
		t.Fatalf("verdict = %v, want WrongAnswer", result.Verdict)
	}
}

func TestJudgeOne_RuntimeError(t *testing.T) {
	argv := withHelperMode(t, "rte")
	tc := TestCase{Input: IoBlock{""}, Expected: IoBlock{""}}
	limits := Limits{TimeSeconds: 5, MemoryBytes: 64 << 20}

	result, err := JudgeOne(context.Background(), argv, tc, limits, Default())
	if err != nil {
		t.Fatalf("JudgeOne error: %v", err)
	}
	if result.Verdict != RuntimeError {
		t.Fatalf("verdict = %v, want RuntimeError", result.Verdict)
	}
	if result.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", result.ExitCode)
	}
}

func TestJudgeOne_TimeLimitExceeded(t *testing.T) {
	argv := withHelperMode(t, "tle")
	tc := TestCase{Input: IoBlock{""}, Expected: IoBlock{""}}
	limits := Limits{TimeSeconds: 0.2, MemoryBytes: 64 << 20}

	result, err := JudgeOne(context.Background(), argv, tc, limits, Default())
	if err != nil {
		t.Fatalf("JudgeOne error: %v", err)
	}
	if result.Verdict != TimeLimitExceeded {
		t.Fatalf("verdict = %v, want TimeLimitExceeded", result.Verdict)
	}
}

func TestJudgeOne_MemoryLimitExceeded(t *testing.T) {
	argv := withHelperMode(t, "mle")
	tc := TestCase{Input: IoBlock{""}, Expected: IoBlock{""}}
	limits := Limits{TimeSeconds: 5, MemoryBytes: 8 << 20}

	result, err := JudgeOne(context.Background(), argv, tc, limits, Default())
	if err != nil {
		t.Fatalf("JudgeOne error: %v", err)
	}
	if result.Verdict != MemoryLimitExceeded {
		t.Fatalf("verdict = %v, want MemoryLimitExceeded", result.Verdict)
	}
}

func TestJudgeOne_ConfigurationError(t *testing.T) {
	tc := TestCase{Input: IoBlock{""}, Expected: IoBlock{""}}
	limits := Limits{TimeSeconds: 1, MemoryBytes: 1 << 20}

	_, err := JudgeOne(context.Background(), []string{"/definitely/not/a/real/binary"}, tc, limits, Default())
	if err == nil {
		t.Fatal("expected an error for an unspawnable executable")
	}
}
