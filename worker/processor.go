// Package worker consumes submission IDs off the queue and runs them
// through the judge package in-process: no compile/run delegation to
// an external sandbox service, the worker process itself hosts the
// sandboxed child.
package worker

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xtevenx/sjudge/command"
	"github.com/xtevenx/sjudge/judge"
	"github.com/xtevenx/sjudge/store"
)

// Processor consumes a submission ID popped off the queue and judges it.
type Processor struct {
	subRepo      store.SubmissionRepository
	exerciseRepo store.ExerciseRepository
}

func NewProcessor(subRepo store.SubmissionRepository, exerciseRepo store.ExerciseRepository) *Processor {
	return &Processor{subRepo: subRepo, exerciseRepo: exerciseRepo}
}

// Process takes a submission ID (as handed back by queue.Reserve) and
// runs it to completion. The returned verdict is the final verdict
// string; a non-nil error means the submission was not judged and
// saved, and cmd/worker then re-enqueues it (up to its retry limit)
// or records it as a system error.
func (p *Processor) Process(ctx context.Context, jobID string) (string, error) {
	id, err := strconv.ParseInt(jobID, 10, 64)
	if err != nil {
		return "", err
	}

	sub, err := p.subRepo.AcquirePending(ctx, id)
	if err != nil {
		return "", err
	}

	spec, err := p.exerciseRepo.Spec(ctx, sub.ExerciseID)
	if err != nil {
		return "", err
	}

	argv := command.Derive(filepath.Base(sub.SourcePath))
	argv[len(argv)-1] = sub.SourcePath
	if len(argv) == 1 {
		if err := markExecutable(sub.SourcePath); err != nil {
			return "", err
		}
	}

	batch, err := judge.JudgeProgram(ctx, argv, spec, nil)
	if err != nil {
		return "", err
	}

	result := toSubmissionResult(sub.ID, batch)
	finalStatus := "succeeded"
	if batch.OverallVerdict != judge.AnswerCorrect {
		finalStatus = "failed"
	}
	if saveErr := p.subRepo.SaveResult(ctx, result, finalStatus); saveErr != nil {
		log.Printf("failed to save judge result for submission %d: %v", id, saveErr)
		return string(batch.OverallVerdict), saveErr
	}

	return string(batch.OverallVerdict), nil
}

func toSubmissionResult(submissionID int64, batch judge.BatchResult) store.SubmissionResult {
	cases := make([]store.SubmissionCaseResult, 0, len(batch.Testcases))
	for _, tc := range batch.Testcases {
		cases = append(cases, store.SubmissionCaseResult{
			Index:     tc.Index,
			Verdict:   string(tc.Verdict),
			CPUTimeMS: tc.CPUTimeMS,
			MemoryMB:  float64(tc.MemoryBytes) / (1024 * 1024),
		})
	}

	cpuTimeMS := batch.MaxCPUTimeMS
	memoryBytes := batch.MaxMemoryBytes
	var errMsg *string
	if batch.OverallVerdict != judge.AnswerCorrect {
		for _, tc := range batch.Testcases {
			if tc.Verdict != judge.AnswerCorrect {
				if len(tc.Stderr) > 0 {
					msg := joinLines(tc.Stderr)
					errMsg = &msg
				}
				break
			}
		}
	}

	return store.SubmissionResult{
		SubmissionID: submissionID,
		Verdict:      string(batch.OverallVerdict),
		CPUTimeMS:    &cpuTimeMS,
		MemoryBytes:  &memoryBytes,
		ErrorMessage: errMsg,
		Cases:        cases,
	}
}

func joinLines(block judge.IoBlock) string {
	out := ""
	for i, l := range block {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

// ensure source files are executable before Derive's ./ invocation form runs them.
func markExecutable(path string) error {
	return os.Chmod(path, 0o755)
}
