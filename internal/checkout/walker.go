package checkout

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// WalkPython streams the checkout-relative path of every *.py file under
// the checkout root to fn, in traversal order. The .git directory is
// skipped. A non-nil error from fn stops the walk and is returned.
func (c *Checkout) WalkPython(fn func(relPath string) error) error {
	return filepath.WalkDir(c.Dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}

		relPath, err := filepath.Rel(c.Dir, path)
		if err != nil {
			return fmt.Errorf("resolve relative path: %w", err)
		}
		return fn(relPath)
	})
}

// Exists reports whether relPath names an existing regular file inside the
// checkout.
func (c *Checkout) Exists(relPath string) bool {
	info, err := os.Stat(filepath.Join(c.Dir, relPath))
	return err == nil && info.Mode().IsRegular()
}
