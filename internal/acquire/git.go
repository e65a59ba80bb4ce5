package acquire

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/srcwords/internal/job"
	"github.com/temirov/srcwords/internal/scratch"
	"github.com/temirov/srcwords/internal/types"
)

const (
	// DefaultGitBinary is resolved through PATH.
	DefaultGitBinary        = "git"
	gitCloneSubcommand      = "clone"
	gitQuietFlag            = "--quiet"
	gitBranchFlag           = "--branch"
	gitDepthFlag            = "--depth"
	gitArgumentTerminator   = "--"
	gitTerminalPromptEnv    = "GIT_TERMINAL_PROMPT=0"
	gitWaitDelay            = 5 * time.Second
	startingCloneLog        = "cloning repository"
	cloneFinishedLog        = "clone complete"
	errorMissingRepository  = "repository URL is empty"
	errorOptionLikeArgument = "value must not start with '-'"
)

// GitCloner clones a repository straight into the scratch tree directory.
type GitCloner struct {
	binary string
	depth  int
	branch string
	logger *zap.Logger
}

// NewGitCloner constructs a cloner using binary ("git" when empty).
func NewGitCloner(binary string, logger *zap.Logger) *GitCloner {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultGitBinary
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitCloner{binary: binary, logger: logger}
}

// WithDepth requests a shallow clone; zero keeps the full history.
func (cloner *GitCloner) WithDepth(depth int) *GitCloner {
	if depth > 0 {
		cloner.depth = depth
	}
	return cloner
}

// WithDefaultBranch sets the branch used when the job names none.
func (cloner *GitCloner) WithDefaultBranch(branch string) *GitCloner {
	cloner.branch = strings.TrimSpace(branch)
	return cloner
}

// Acquire runs git clone into directory.TreeDirectory(). The returned artifact
// carries no archive since the tree is populated directly.
func (cloner *GitCloner) Acquire(ctx context.Context, request job.Job, directory *scratch.Directory) (types.Artifact, error) {
	repositoryURL := strings.TrimSpace(request.SourceGitURL())
	if repositoryURL == "" {
		return types.Artifact{}, job.NewError(job.ErrInvalidInput, repositoryURL, errors.New(errorMissingRepository))
	}
	branch := request.GitBranch()
	if branch == "" {
		branch = cloner.branch
	}
	for _, value := range []string{repositoryURL, branch} {
		if strings.HasPrefix(value, "-") {
			return types.Artifact{}, job.NewError(job.ErrInvalidInput, value, errors.New(errorOptionLikeArgument))
		}
	}

	arguments := cloner.cloneArguments(repositoryURL, branch, directory.TreeDirectory())
	// #nosec G204
	command := exec.CommandContext(ctx, cloner.binary, arguments...)
	command.Env = append(os.Environ(), gitTerminalPromptEnv)
	command.WaitDelay = gitWaitDelay
	var stderr bytes.Buffer
	command.Stderr = &stderr

	cloner.logger.Info(startingCloneLog, zap.String("repository", request.RedactedSource()), zap.String("branch", branch))
	if runError := command.Run(); runError != nil {
		if contextError := ctx.Err(); contextError != nil {
			return types.Artifact{}, contextError
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return types.Artifact{}, job.Errorf(job.ErrClone, request.RedactedSource(), "%v: %s", runError, detail)
		}
		return types.Artifact{}, job.NewError(job.ErrClone, request.RedactedSource(), runError)
	}
	cloner.logger.Info(cloneFinishedLog, zap.String("repository", request.RedactedSource()))
	return types.Artifact{}, nil
}

func (cloner *GitCloner) cloneArguments(repositoryURL string, branch string, destination string) []string {
	arguments := []string{gitCloneSubcommand, gitQuietFlag}
	if branch != "" {
		arguments = append(arguments, gitBranchFlag, branch)
	}
	if cloner.depth > 0 {
		arguments = append(arguments, gitDepthFlag, strconv.Itoa(cloner.depth))
	}
	return append(arguments, gitArgumentTerminator, repositoryURL, destination)
}

var _ Acquirer = (*GitCloner)(nil)
