// Package checkout manages temporary repository checkouts: cloning via the
// external git client, enumerating candidate files, and guaranteed removal.
package checkout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pysentry/pysentry/internal/log"
)

// Checkout is a cloned repository or branch in a temporary directory. It is
// exclusively owned by the delivery that created it and must be removed
// with Remove when handling ends.
type Checkout struct {
	Dir    string
	logger *slog.Logger
}

// New wraps an existing directory as a Checkout. Used when the caller
// already owns a tree (tests, pre-fetched content).
func New(dir string) *Checkout {
	return &Checkout{Dir: dir, logger: log.WithComponent("checkout")}
}

// Fetcher clones repositories using the external git executable.
type Fetcher struct {
	gitBin string
	logger *slog.Logger
}

// NewFetcher creates a Fetcher using gitBin (resolved via PATH).
func NewFetcher(gitBin string) *Fetcher {
	if gitBin == "" {
		gitBin = "git"
	}
	return &Fetcher{
		gitBin: gitBin,
		logger: log.WithComponent("checkout"),
	}
}

// Clone clones cloneURL into a fresh temporary directory. A non-empty
// branch restricts the clone to that single branch. The directory is
// removed before returning on any failure, so a failed clone never leaks
// a checkout.
func (f *Fetcher) Clone(ctx context.Context, cloneURL, branch string) (*Checkout, error) {
	if cloneURL == "" {
		return nil, fmt.Errorf("clone URL is empty")
	}

	dir, err := os.MkdirTemp("", "pysentry-checkout-")
	if err != nil {
		return nil, fmt.Errorf("create checkout directory: %w", err)
	}

	args := []string{"clone", "--depth", "1"}
	if branch != "" {
		args = append(args, "--branch", branch, "--single-branch")
	}
	args = append(args, cloneURL, dir)

	cmd := exec.CommandContext(ctx, f.gitBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	f.logger.Debug("cloning repository", "url", cloneURL, "branch", branch, "dir", dir)

	if err := cmd.Run(); err != nil {
		_ = removeTree(dir, f.logger)
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("git clone %s: %s", cloneURL, msg)
	}

	return &Checkout{Dir: dir, logger: f.logger}, nil
}

// Remove deletes the checkout tree. A permission error on a single file
// gets one retry after clearing read-only bits; a second failure on the
// same file propagates.
func (c *Checkout) Remove() error {
	return removeTree(c.Dir, c.logger)
}

func removeTree(dir string, logger *slog.Logger) error {
	var lastFailed string

	for {
		err := os.RemoveAll(dir)
		if err == nil {
			return nil
		}

		var pathErr *os.PathError
		if !errors.As(err, &pathErr) || !os.IsPermission(err) {
			return fmt.Errorf("remove checkout %s: %w", dir, err)
		}
		if pathErr.Path == lastFailed {
			return fmt.Errorf("remove checkout %s: %w", dir, err)
		}
		lastFailed = pathErr.Path

		logger.Warn("clearing read-only entry during cleanup", "path", pathErr.Path)
		if chErr := makeWritable(pathErr.Path); chErr != nil {
			return fmt.Errorf("remove checkout %s: %w", dir, err)
		}
	}
}

// makeWritable adds owner write (and traverse, for directories) bits to
// path and its parent. Unlink permission comes from the parent directory,
// so fixing only the named entry is not enough.
func makeWritable(path string) error {
	fix := func(p string) error {
		info, err := os.Lstat(p)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		mode := info.Mode().Perm() | 0o200
		if info.IsDir() {
			mode |= 0o300
		}
		return os.Chmod(p, mode)
	}

	if err := fix(path); err != nil {
		return err
	}
	return fix(filepath.Dir(path))
}
