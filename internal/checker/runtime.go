package checker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// maxCapturedBytes caps the stdout/stderr captured from an executed file.
const maxCapturedBytes = 64 * 1024

// runFile executes a syntactically valid file and classifies the outcome.
// Priority: timeout, then non-zero exit, then produced output, then clean.
//
// The spawn is deliberately constrained: the child gets a scrubbed
// environment, runs inside the checkout, and lives in its own process
// group so a timeout kills the whole tree, not just the interpreter.
func (c *Checker) runFile(ctx context.Context, checkoutDir, relPath string) Result {
	absPath := filepath.Join(checkoutDir, relPath)

	timeoutTimer := time.NewTimer(c.runTimeout)
	defer timeoutTimer.Stop()

	// Don't use CommandContext - we manage termination ourselves so the
	// entire process group can be signalled.
	cmd := exec.Command(c.pythonBin, absPath)
	cmd.Dir = checkoutDir
	cmd.Env = scrubbedEnv()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("executing file", "path", relPath, "timeout", c.runTimeout)

	if err := cmd.Start(); err != nil {
		return Result{
			Path:    relPath,
			Class:   ClassRuntimeError,
			Message: fmt.Sprintf("❌ Runtime error in %s: %v", relPath, err),
		}
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		c.killGroup(cmd)
		<-waitErr
		return Result{
			Path:    relPath,
			Class:   ClassTimeout,
			Message: fmt.Sprintf("⏱️ %s: Execution cancelled", relPath),
		}

	case <-timeoutTimer.C:
		c.logger.Warn("execution timed out", "path", relPath, "timeout", c.runTimeout)
		c.killGroup(cmd)
		<-waitErr
		return Result{
			Path:    relPath,
			Class:   ClassTimeout,
			Message: fmt.Sprintf("⏱️ %s: Execution timed out after %s", relPath, c.runTimeout),
		}

	case err := <-waitErr:
		if err != nil {
			if _, ok := err.(*exec.ExitError); ok {
				errOut := truncateOutput(stderr.String())
				return Result{
					Path:    relPath,
					Class:   ClassRuntimeError,
					Message: fmt.Sprintf("❌ Runtime error in %s: %s", relPath, errOut),
				}
			}
			return Result{
				Path:    relPath,
				Class:   ClassRuntimeError,
				Message: fmt.Sprintf("❌ Runtime error in %s: %v", relPath, err),
			}
		}

		if out := strings.TrimSpace(stdout.String()); out != "" {
			return Result{
				Path:    relPath,
				Class:   ClassOutput,
				Message: fmt.Sprintf("📤 %s: Output: %s", relPath, truncateOutput(out)),
			}
		}

		return Result{
			Path:    relPath,
			Class:   ClassClean,
			Message: fmt.Sprintf("✅ %s: No errors", relPath),
		}
	}
}

// killGroup sends SIGKILL to the child's process group.
func (c *Checker) killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		c.logger.Error("failed to kill process group", "pid", cmd.Process.Pid, "error", err)
		_ = cmd.Process.Kill()
	}
}

// scrubbedEnv returns the minimal environment handed to executed files.
// Repository code runs with no ambient credentials from the service.
func scrubbedEnv() []string {
	env := []string{"LANG=C.UTF-8"}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "PATH=") {
			env = append(env, kv)
		}
	}
	return env
}

// truncateOutput trims captured output to maxCapturedBytes.
func truncateOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxCapturedBytes {
		return s
	}
	return s[:maxCapturedBytes] + "... (truncated)"
}
