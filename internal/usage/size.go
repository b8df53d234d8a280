// Package usage computes on-disk byte usage of the screenshot store by
// walking the filesystem. Results are always live; nothing is cached.
package usage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/pders01/shotvault/internal/models"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// walkConcurrency bounds how many item directories are walked at once
const walkConcurrency = 4

// Totals is the live usage of a storage root
type Totals struct {
	UsedBytes int64
	ItemCount int
}

// SizeOf sums the sizes of all regular files below dir, descending into
// subdirectories with an explicit work-list. Symlinks are not followed.
// A missing dir has size 0.
func SizeOf(fs afero.Fs, dir string) (int64, error) {
	var total int64
	pending := []string{dir}

	for len(pending) > 0 {
		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		entries, err := afero.ReadDir(fs, cur)
		if err != nil {
			if cur == dir && errors.Is(err, os.ErrNotExist) {
				return 0, nil
			}
			return 0, models.IOError("read directory "+cur, err)
		}

		for _, e := range entries {
			switch {
			case e.IsDir():
				pending = append(pending, filepath.Join(cur, e.Name()))
			case e.Mode().IsRegular():
				total += e.Size()
			}
		}
	}

	return total, nil
}

// Total enumerates every top-level item directory under root and sums
// SizeOf over each. Dot-prefixed entries (the staging area) and plain files
// (the catalog document) are not items.
func Total(ctx context.Context, fs afero.Fs, root string) (Totals, error) {
	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Totals{}, nil
		}
		return Totals{}, models.IOError("list storage root", err)
	}

	var (
		used  atomic.Int64
		count int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(walkConcurrency)

	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		count++
		dir := filepath.Join(root, e.Name())
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			size, err := SizeOf(fs, dir)
			if err != nil {
				return err
			}
			used.Add(size)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Totals{}, err
	}
	return Totals{UsedBytes: used.Load(), ItemCount: count}, nil
}

// Subtract returns total-n floored at zero
func Subtract(total, n int64) int64 {
	if n >= total {
		return 0
	}
	return total - n
}
