// Package walk enumerates every entry of an extracted source tree.
package walk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/srcwords/internal/utils"
)

const (
	warningUnreadableEntry = "skipping unreadable entry"
	warningDanglingSymlink = "skipping dangling symlink"
	errorEmptyRoot         = "walk: root path is empty"
	errorRootFormat        = "walk root %s: %w"
)

// Options controls a single walk.
type Options struct {
	Root string
	// FilesOnly drops directory entries from the result while still descending into them.
	FilesOnly bool
	// SkipDirectories lists root-relative directories that are neither listed nor descended into.
	SkipDirectories []string
}

// Walker enumerates filesystem entries. Per-entry failures are logged and skipped.
type Walker struct {
	logger *zap.Logger
}

// NewWalker constructs a Walker that reports warnings through logger.
func NewWalker(logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{logger: logger}
}

// Walk returns the absolute path of every entry below options.Root. The root
// itself is not included. Ordering follows the traversal and carries no
// guarantee beyond being stable for an unchanged tree.
func (walker *Walker) Walk(ctx context.Context, options Options) ([]string, error) {
	if options.Root == "" {
		return nil, errors.New(errorEmptyRoot)
	}
	root, absoluteError := filepath.Abs(options.Root)
	if absoluteError != nil {
		return nil, fmt.Errorf(errorRootFormat, options.Root, absoluteError)
	}
	if _, statError := os.Stat(root); statError != nil {
		return nil, fmt.Errorf(errorRootFormat, root, statError)
	}

	skipped := make(map[string]struct{}, len(options.SkipDirectories))
	for _, directory := range options.SkipDirectories {
		skipped[filepath.Clean(directory)] = struct{}{}
	}

	group, walkCtx := errgroup.WithContext(ctx)
	entries := make(chan string)
	var paths []string

	group.Go(func() error {
		defer close(entries)
		return filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkError error) error {
			if contextError := walkCtx.Err(); contextError != nil {
				return contextError
			}
			if walkError != nil {
				if path == root {
					return walkError
				}
				walker.logger.Warn(warningUnreadableEntry, zap.String("path", path), zap.Error(walkError))
				if entry != nil && entry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if path == root {
				return nil
			}
			if entry.IsDir() {
				if _, skip := skipped[utils.RelativePathOrSelf(path, root)]; skip {
					return fs.SkipDir
				}
				if options.FilesOnly {
					return nil
				}
			}
			if entry.Type()&fs.ModeSymlink != 0 {
				targetInfo, targetError := os.Stat(path)
				if targetError != nil {
					walker.logger.Warn(warningDanglingSymlink, zap.String("path", path), zap.Error(targetError))
					return nil
				}
				// Links are never followed, but one naming a directory counts as a directory.
				if options.FilesOnly && targetInfo.IsDir() {
					return nil
				}
			}
			select {
			case <-walkCtx.Done():
				return walkCtx.Err()
			case entries <- path:
				return nil
			}
		})
	})

	group.Go(func() error {
		for {
			select {
			case <-walkCtx.Done():
				return walkCtx.Err()
			case path, ok := <-entries:
				if !ok {
					return nil
				}
				paths = append(paths, path)
			}
		}
	})

	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}
	return paths, nil
}
