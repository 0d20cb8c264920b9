package judge

import (
	"context"
	"strings"

	"github.com/xtevenx/sjudge/runner"
)

// JudgeOne runs argv once against tc.Input under limits, and derives a
// TestCaseResult from the completed process. Returns a non-nil error
// only for a ConfigurationError (the executable could not be spawned);
// any runtime outcome is encoded as a Verdict, never an error.
//
// Verdict is derived in priority order: a process killed for a
// resource violation has undefined output, so the comparator never
// runs on it.
//   1. TimeExceeded    -> TimeLimitExceeded
//   2. MemoryExceeded  -> MemoryLimitExceeded
//   3. ExitCode != 0   -> RuntimeError
//   4. comparator(actual, expected) -> AnswerCorrect / WrongAnswer
func JudgeOne(ctx context.Context, argv []string, tc TestCase, limits Limits, cmp Comparator) (TestCaseResult, error) {
	completed, err := runner.Run(ctx, argv, encodeInput(tc.Input), limits.MemoryBytes, limits.TimeSeconds)
	if err != nil {
		return TestCaseResult{}, err
	}

	actualStdout := decodeOutput(completed.Stdout)
	actualStderr := decodeOutput(completed.Stderr)

	result := TestCaseResult{
		Input:       tc.Input,
		Expected:    tc.Expected,
		Stdout:      actualStdout,
		Stderr:      actualStderr,
		ExitCode:    completed.ExitCode,
		CPUTimeMS:   completed.CPUTimeUsed * 1000,
		MemoryBytes: completed.MemoryUsed,
	}

	switch {
	case completed.TimeExceeded:
		result.Verdict = TimeLimitExceeded
	case completed.MemoryExceeded:
		result.Verdict = MemoryLimitExceeded
	case completed.ExitCode != 0:
		result.Verdict = RuntimeError
	case cmp.Evaluate(actualStdout, tc.Expected):
		result.Verdict = AnswerCorrect
	default:
		result.Verdict = WrongAnswer
	}

	return result, nil
}

// encodeInput joins lines with "\n", each line terminated, matching
// the child-process interface in §6: EOF follows the last line.
func encodeInput(block IoBlock) string {
	if len(block) == 0 {
		return ""
	}
	var b strings.Builder
	for _, line := range block {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// decodeOutput strips a leading/trailing run of newlines from the raw
// blob, then splits on "\n" and trims a trailing "\r" from each line.
func decodeOutput(raw string) IoBlock {
	trimmed := strings.Trim(raw, "\n")
	if trimmed == "" {
		return IoBlock{""}
	}
	lines := strings.Split(trimmed, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r\n")
	}
	return lines
}
