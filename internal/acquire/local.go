package acquire

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/temirov/srcwords/internal/job"
	"github.com/temirov/srcwords/internal/scratch"
	"github.com/temirov/srcwords/internal/types"
)

const notRegularFileMessage = "not a regular file"

// LocalFileAcquirer hands an existing archive to the extractor. The file is
// neither copied nor deleted.
type LocalFileAcquirer struct{}

// NewLocalFileAcquirer constructs a LocalFileAcquirer.
func NewLocalFileAcquirer() *LocalFileAcquirer {
	return &LocalFileAcquirer{}
}

// Acquire validates that the path exists and is a regular file.
func (acquirer *LocalFileAcquirer) Acquire(ctx context.Context, request job.Job, directory *scratch.Directory) (types.Artifact, error) {
	inputPath := request.SourceLocalPath()
	absolutePath, absoluteError := filepath.Abs(inputPath)
	if absoluteError != nil {
		return types.Artifact{}, job.NewError(job.ErrInvalidInput, inputPath, absoluteError)
	}
	info, statError := os.Stat(absolutePath)
	if statError != nil {
		return types.Artifact{}, job.NewError(job.ErrInvalidInput, inputPath, statError)
	}
	if !info.Mode().IsRegular() {
		return types.Artifact{}, job.NewError(job.ErrInvalidInput, inputPath, errors.New(notRegularFileMessage))
	}
	return types.Artifact{ArchivePath: absolutePath, SizeBytes: info.Size()}, nil
}

var _ Acquirer = (*LocalFileAcquirer)(nil)
