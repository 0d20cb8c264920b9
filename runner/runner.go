// Package runner launches a single child process under a real CPU-time
// and resident-memory ceiling, samples its resource usage until exit,
// and reports exact usage plus whichever limit (if any) it violated.
//
// Sampling is grounded in the original sjudge implementation's psutil
// polling loop (src/run.py): rather than relying on the OS to enforce
// limits, the runner repeatedly reads the child's accumulated CPU time
// and RSS and kills it the moment either crosses its ceiling. On Linux
// the reads come from /proc/<pid>/stat via github.com/prometheus/procfs,
// the same library and accessor pattern (Proc.NewStat, Stat.CPUTime,
// Stat.ResidentMemory) ncabatoff/process-exporter uses to summarize a
// process's resource usage.
package runner

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/prometheus/procfs"
)

// CompletedRun is the result of one sandboxed invocation.
type CompletedRun struct {
	ExitCode int
	Stdout   string
	Stderr   string

	// CPUTimeUsed is user+system CPU time, in seconds.
	CPUTimeUsed float64
	// MemoryUsed is the peak observed resident set size, in bytes.
	MemoryUsed int64

	TimeExceeded   bool
	MemoryExceeded bool
}

// pollInterval is the sampling cadence. Sub-10ms keeps typical
// sub-second test cases producing non-zero CPU readings while the
// child is expected to be short-lived.
const pollInterval = 5 * time.Millisecond

// wallClockLimit bounds how long a CPU-time-idle (e.g. sleeping) child
// may run past its time limit before the watchdog kills it anyway.
// Additive-1s-or-10%-multiplicative are both acceptable per spec; this
// implementation takes the larger of the two so short limits still get
// a meaningful grace window.
func wallClockLimit(timeLimitSeconds float64) float64 {
	additive := timeLimitSeconds + 1.0
	multiplicative := timeLimitSeconds * 1.1
	if multiplicative > additive {
		return multiplicative
	}
	return additive
}

// Run spawns argv[0] with the remainder of argv as its arguments,
// writes stdin to the child's standard input and closes it, then
// samples CPU time and RSS until the child exits or a limit is
// violated. A caller-initiated ctx cancellation kills the child before
// returning control; no partial result is promised in that case.
func Run(ctx context.Context, argv []string, stdin string, memoryLimitBytes int64, timeLimitSeconds float64) (CompletedRun, error) {
	if len(argv) == 0 {
		return CompletedRun{}, configErrorf("empty argv")
	}

	cmd := exec.Command(argv[0], argv[1:]...)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return CompletedRun{}, configErrorf("%s", lowerFirst(err.Error()))
	}

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return CompletedRun{}, configErrorf("the executable does not exist")
		}
		var pathErr *exec.Error
		if errors.As(err, &pathErr) {
			return CompletedRun{}, configErrorf("%s", lowerFirst(pathErr.Err.Error()))
		}
		return CompletedRun{}, configErrorf("%s", lowerFirst(err.Error()))
	}

	go func() {
		defer stdinPipe.Close()
		_, _ = stdinPipe.Write([]byte(stdin))
	}()

	done := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(done)
	}()

	pid := cmd.Process.Pid
	start := time.Now()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var maxMemory int64
	var cpuTime float64
	wallClockKilled := false

sampleLoop:
	for {
		select {
		case <-done:
			break sampleLoop
		case <-ctx.Done():
			_ = cmd.Process.Kill()
		case <-ticker.C:
			proc, err := procfs.NewProc(pid)
			if err != nil {
				// The process has already exited; the race between this
				// check and the waiter goroutine is harmless, just stop
				// sampling and let `done` fire on its own.
				continue
			}
			stat, err := proc.Stat()
			if err != nil {
				continue
			}
			cpuTime = stat.CPUTime()
			if mem := int64(stat.ResidentMemory()); mem > maxMemory {
				maxMemory = mem
			}

			wallElapsed := time.Since(start).Seconds()
			switch {
			case cpuTime > timeLimitSeconds:
				_ = cmd.Process.Kill()
			case wallElapsed > wallClockLimit(timeLimitSeconds):
				wallClockKilled = true
				_ = cmd.Process.Kill()
			case maxMemory > memoryLimitBytes:
				_ = cmd.Process.Kill()
			}
		}
	}

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	} else if waitErr != nil {
		exitCode = -1
	}

	timeExceeded := wallClockKilled || cpuTime > timeLimitSeconds
	memoryExceeded := maxMemory > memoryLimitBytes

	return CompletedRun{
		ExitCode:       exitCode,
		Stdout:         strings.ToValidUTF8(stdoutBuf.String(), "�"),
		Stderr:         strings.ToValidUTF8(stderrBuf.String(), "�"),
		CPUTimeUsed:    cpuTime,
		MemoryUsed:     maxMemory,
		TimeExceeded:   timeExceeded,
		MemoryExceeded: memoryExceeded,
	}, nil
}
