// Package checker classifies Python files: it compiles them to surface
// syntax errors and, for syntactically valid files, executes them under a
// bounded timeout to surface runtime errors.
package checker

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/pysentry/pysentry/internal/log"
)

// Class identifies the outcome of checking a single file.
type Class string

const (
	ClassClean        Class = "clean"
	ClassSyntaxError  Class = "syntax_error"
	ClassRuntimeError Class = "runtime_error"
	ClassTimeout      Class = "timeout"
	ClassOutput       Class = "output"
	ClassFileMissing  Class = "file_missing"
)

// IsError reports whether the class counts toward a delivery's error total.
func (c Class) IsError() bool {
	return c != ClassClean && c != ClassOutput
}

// Result is the outcome of checking one file. Message is the exact string
// appended to the result log.
type Result struct {
	Path    string
	Class   Class
	Message string

	// Digest is the BLAKE3 fingerprint of the file content, used to
	// correlate repeat checks of the same path across commits. Empty
	// when the file was missing.
	Digest string
}

// Checker drives syntax and runtime checks using an external interpreter.
type Checker struct {
	pythonBin  string
	runTimeout time.Duration
	logger     *slog.Logger
}

// New creates a Checker. runTimeout bounds each runtime execution.
func New(pythonBin string, runTimeout time.Duration) *Checker {
	if pythonBin == "" {
		pythonBin = "python3"
	}
	if runTimeout <= 0 {
		runTimeout = 10 * time.Second
	}
	return &Checker{
		pythonBin:  pythonBin,
		runTimeout: runTimeout,
		logger:     log.WithComponent("checker"),
	}
}

// CheckFile checks relPath inside checkoutDir. Missing files classify as
// ClassFileMissing; a syntax failure short-circuits the runtime check.
func (c *Checker) CheckFile(ctx context.Context, checkoutDir, relPath string) Result {
	absPath := filepath.Join(checkoutDir, relPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{
				Path:    relPath,
				Class:   ClassFileMissing,
				Message: fmt.Sprintf("⚠️ %s: File not found", relPath),
			}
		}
		return Result{
			Path:    relPath,
			Class:   ClassFileMissing,
			Message: fmt.Sprintf("⚠️ %s: Unreadable: %v", relPath, err),
		}
	}

	digest := blake3.Sum256(data)
	digestHex := hex.EncodeToString(digest[:])

	if res := c.checkSyntax(ctx, checkoutDir, relPath); res != nil {
		res.Digest = digestHex
		return *res
	}

	res := c.runFile(ctx, checkoutDir, relPath)
	res.Digest = digestHex
	return res
}
