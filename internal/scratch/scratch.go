// Package scratch manages the per-run temporary directory that receives
// downloaded archives and the extracted source tree.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/temirov/srcwords/internal/job"
	"github.com/temirov/srcwords/internal/utils"
)

const (
	archiveDirectoryName = "archive"
	treeDirectoryName    = "tree"
	directoryPermissions = 0o700
	temporaryNameSuffix  = "-*"
)

// Directory is a uniquely named scratch directory. Remove is safe to call
// any number of times and deletes the directory at most once.
type Directory struct {
	root       string
	removeOnce sync.Once
	removeErr  error
}

// Create makes a new scratch directory under tempRoot (the system temp
// directory when empty). The name combines the job id with a random suffix
// so concurrent runs never collide.
func Create(tempRoot string, jobID string) (*Directory, error) {
	if tempRoot == "" {
		tempRoot = os.TempDir()
	}
	absoluteRoot, absoluteError := filepath.Abs(tempRoot)
	if absoluteError != nil {
		return nil, job.NewError(job.ErrScratchDir, tempRoot, absoluteError)
	}
	tempRoot = absoluteRoot
	if jobID == "" {
		jobID = uuid.NewString()
	}
	root, createError := os.MkdirTemp(tempRoot, utils.ScratchDirectoryPrefix+jobID+temporaryNameSuffix)
	if createError != nil {
		return nil, job.NewError(job.ErrScratchDir, tempRoot, createError)
	}
	directory := &Directory{root: root}
	for _, child := range []string{directory.ArchiveDirectory(), directory.TreeDirectory()} {
		if mkdirError := os.Mkdir(child, directoryPermissions); mkdirError != nil {
			_ = directory.Remove()
			return nil, job.NewError(job.ErrScratchDir, child, mkdirError)
		}
	}
	return directory, nil
}

// Root returns the scratch directory path.
func (directory *Directory) Root() string { return directory.root }

// ArchiveDirectory holds downloaded archives.
func (directory *Directory) ArchiveDirectory() string {
	return filepath.Join(directory.root, archiveDirectoryName)
}

// TreeDirectory holds the extracted or cloned source tree.
func (directory *Directory) TreeDirectory() string {
	return filepath.Join(directory.root, treeDirectoryName)
}

// Remove deletes the scratch directory and everything below it.
func (directory *Directory) Remove() error {
	if directory == nil {
		return nil
	}
	directory.removeOnce.Do(func() {
		if removeError := os.RemoveAll(directory.root); removeError != nil {
			directory.removeErr = fmt.Errorf("remove scratch directory %s: %w", directory.root, removeError)
		}
	})
	return directory.removeErr
}
