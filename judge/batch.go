package judge

import "context"

// JudgeProgram runs every test case in spec, in listed order, never
// aborting early on a failure so the caller sees every case. It blocks
// until the whole batch completes; a ctx cancellation between cases
// stops the batch and returns whatever error context.Context reports.
//
// progress, if non-nil, is invoked exactly once per completed case
// with the BatchResult as it stands after that case was appended.
func JudgeProgram(ctx context.Context, argv []string, spec ExerciseSpec, progress ProgressHook) (BatchResult, error) {
	var result BatchResult
	result.OverallVerdict = AnswerCorrect

	for i, tc := range spec.Testcases {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		tcResult, err := JudgeOne(ctx, argv, tc, spec.Limits, spec.Comparator)
		if err != nil {
			return result, err
		}
		tcResult.Index = i

		result.addResult(tcResult)

		if progress != nil {
			progress(result)
		}
	}

	return result, nil
}
