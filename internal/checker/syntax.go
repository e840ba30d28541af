package checker

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var syntaxLinePattern = regexp.MustCompile(`, line (\d+)`)

// checkSyntax compiles the file without executing it. Returns nil when the
// file is syntactically valid, or a Result describing the syntax error.
func (c *Checker) checkSyntax(ctx context.Context, checkoutDir, relPath string) *Result {
	absPath := filepath.Join(checkoutDir, relPath)

	cmd := exec.CommandContext(ctx, c.pythonBin, "-m", "py_compile", absPath)
	cmd.Dir = checkoutDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err == nil {
		return nil
	}

	line, msg := parseSyntaxError(stderr.String())
	c.logger.Debug("syntax check failed", "path", relPath, "line", line, "message", msg)

	return &Result{
		Path:    relPath,
		Class:   ClassSyntaxError,
		Message: fmt.Sprintf("❌ Error in %s at line %d: %s", relPath, line, msg),
	}
}

// parseSyntaxError extracts the line number and parser message from the
// interpreter's compile report, e.g.:
//
//	  File "/tmp/x.py", line 3
//	    def f(:
//	          ^
//	SyntaxError: invalid syntax
//
// Falls back to line 0 and the last non-empty stderr line when the report
// has an unexpected shape.
func parseSyntaxError(stderr string) (int, string) {
	line := 0
	if m := syntaxLinePattern.FindStringSubmatch(stderr); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			line = n
		}
	}

	msg := ""
	for _, l := range strings.Split(stderr, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if i := strings.Index(l, "Error: "); i >= 0 {
			msg = l[i+len("Error: "):]
		}
	}
	if msg == "" {
		lines := strings.Split(strings.TrimSpace(stderr), "\n")
		msg = strings.TrimSpace(lines[len(lines)-1])
	}
	return line, msg
}
