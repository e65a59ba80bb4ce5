// Package pipeline runs a word-list job through acquisition, extraction,
// traversal, tokenization and writing, always removing its scratch directory.
package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/srcwords/internal/job"
	"github.com/temirov/srcwords/internal/scratch"
	"github.com/temirov/srcwords/internal/types"
	"github.com/temirov/srcwords/internal/utils"
	"github.com/temirov/srcwords/internal/walk"
	"github.com/temirov/srcwords/internal/wordlist"
)

const (
	stageAcquire  = "acquire"
	stageExtract  = "extract"
	stageWalk     = "walk"
	stageTokenize = "tokenize"
	stageWrite    = "write"

	logJobStarted        = "job started"
	logStageStarted      = "stage started"
	logJobFinished       = "word list written"
	warningScratchRemove = "failed to remove scratch directory"
	errorMissingArchive  = "acquisition produced no archive"
)

// Acquirer fetches the job source into the scratch directory.
type Acquirer interface {
	Acquire(ctx context.Context, request job.Job, directory *scratch.Directory) (types.Artifact, error)
}

// Extractor unpacks an archive into a destination directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath string, destination string) error
}

// Walker lists the entries of a directory tree.
type Walker interface {
	Walk(ctx context.Context, options walk.Options) ([]string, error)
}

// Result summarizes a completed run.
type Result struct {
	JobID      string
	OutputPath string
	PathCount  int
	TokenCount int
	Tokens     []string
}

// Runner wires the stages together. It holds no per-job state and may run
// several jobs concurrently.
type Runner struct {
	logger    *zap.Logger
	acquirer  Acquirer
	extractor Extractor
	walker    Walker
	tempRoot  string
}

// NewRunner constructs a Runner. An empty tempRoot selects the system temp directory.
func NewRunner(logger *zap.Logger, acquirer Acquirer, extractor Extractor, walker Walker, tempRoot string) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		logger:    logger,
		acquirer:  acquirer,
		extractor: extractor,
		walker:    walker,
		tempRoot:  tempRoot,
	}
}

// Run executes request. Every exit path removes the scratch directory; no
// output file exists unless Run returns a nil error.
func (runner *Runner) Run(ctx context.Context, request job.Job) (Result, error) {
	jobID := uuid.NewString()
	logger := runner.logger.With(zap.String("job", jobID))
	logger.Info(logJobStarted,
		zap.String("mode", string(request.Mode())),
		zap.String("source", request.RedactedSource()),
		zap.String("output", request.OutputPath()),
	)

	if err := checkInterrupted(ctx, stageAcquire); err != nil {
		return Result{}, err
	}
	directory, scratchError := scratch.Create(runner.tempRoot, jobID)
	if scratchError != nil {
		return Result{}, scratchError
	}
	defer func() {
		if removeError := directory.Remove(); removeError != nil {
			logger.Warn(warningScratchRemove, zap.String("path", directory.Root()), zap.Error(removeError))
		}
	}()

	logger.Debug(logStageStarted, zap.String("stage", stageAcquire))
	artifact, acquireError := runner.acquirer.Acquire(ctx, request, directory)
	if acquireError != nil {
		return Result{}, stageFailure(ctx, stageAcquire, acquireError)
	}

	if request.Mode().RequiresExtraction() {
		if err := checkInterrupted(ctx, stageExtract); err != nil {
			return Result{}, err
		}
		if !artifact.HasArchive() {
			return Result{}, job.NewError(job.ErrExtraction, request.RedactedSource(), errors.New(errorMissingArchive))
		}
		logger.Debug(logStageStarted, zap.String("stage", stageExtract), zap.String("archive", artifact.ArchivePath))
		if extractError := runner.extractor.Extract(ctx, artifact.ArchivePath, directory.TreeDirectory()); extractError != nil {
			return Result{}, stageFailure(ctx, stageExtract, extractError)
		}
	}

	if err := checkInterrupted(ctx, stageWalk); err != nil {
		return Result{}, err
	}
	logger.Debug(logStageStarted, zap.String("stage", stageWalk))
	walkOptions := walk.Options{Root: directory.TreeDirectory(), FilesOnly: request.FilesOnly()}
	if request.Mode() == types.ModeGitRepo && !request.IncludeGitMetadata() {
		walkOptions.SkipDirectories = []string{utils.GitDirectoryName}
	}
	paths, walkError := runner.walker.Walk(ctx, walkOptions)
	if walkError != nil {
		return Result{}, stageFailure(ctx, stageWalk, walkError)
	}

	if err := checkInterrupted(ctx, stageTokenize); err != nil {
		return Result{}, err
	}
	relativePaths := make([]string, 0, len(paths))
	for _, entryPath := range paths {
		relativePaths = append(relativePaths, utils.RelativePathOrSelf(entryPath, directory.TreeDirectory()))
	}
	tokens := wordlist.Tokenize(relativePaths)

	if err := checkInterrupted(ctx, stageWrite); err != nil {
		return Result{}, err
	}
	if writeError := wordlist.Write(request.OutputPath(), tokens); writeError != nil {
		return Result{}, writeError
	}

	result := Result{
		JobID:      jobID,
		OutputPath: request.OutputPath(),
		PathCount:  len(paths),
		TokenCount: len(tokens),
		Tokens:     tokens,
	}
	logger.Info(logJobFinished,
		zap.String("output", result.OutputPath),
		zap.Int("paths", result.PathCount),
		zap.Int("tokens", result.TokenCount),
	)
	return result, nil
}

func checkInterrupted(ctx context.Context, stage string) error {
	if contextError := ctx.Err(); contextError != nil {
		return job.NewError(job.ErrInterrupted, stage, contextError)
	}
	return nil
}

// stageFailure reports any failure that coincides with cancellation as an interrupt.
func stageFailure(ctx context.Context, stage string, cause error) error {
	if ctx.Err() != nil || errors.Is(cause, context.Canceled) {
		return job.NewError(job.ErrInterrupted, stage, cause)
	}
	return cause
}
