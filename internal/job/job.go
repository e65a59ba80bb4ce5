// Package job builds the immutable configuration of a single word-list run.
package job

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/srcwords/internal/types"
)

// Flag names used when reporting mode conflicts.
const (
	InfileFlagName  = "infile"
	URLFlagName     = "url"
	GitRepoFlagName = "gitrepo"
	S3FlagName      = "s3"
	OutfileFlagName = "outfile"
)

const (
	missingSourceMessageFormat = "one of --%s, --%s, --%s or --%s is required"
	conflictingFlagsFormat     = "--%s are mutually exclusive"
	missingOutputMessage       = "--" + OutfileFlagName + " is required"
	outputIsDirectoryMessage   = "output path is a directory"
)

// Options is the raw, unvalidated input collected from flags and configuration.
type Options struct {
	InputFile          string
	DownloadURL        string
	GitRepositoryURL   string
	ObjectURL          string
	GitBranch          string
	OutputFile         string
	FilesOnly          bool
	IncludeGitMetadata bool
}

// Job is the validated configuration of one run. Exactly one source field is
// populated, matching Mode.
type Job struct {
	mode               types.Mode
	sourceLocalPath    string
	sourceURL          string
	sourceGitURL       string
	sourceObjectURL    string
	gitBranch          string
	outputPath         string
	filesOnly          bool
	includeGitMetadata bool
}

// New validates options without touching the network or creating files.
// It fails with ErrConfig when zero or several sources are selected or the
// output is missing, and with ErrOutputExists when the output path exists.
func New(options Options) (Job, error) {
	selected := selectedSources(options)
	switch {
	case len(selected) == 0:
		return Job{}, Errorf(ErrConfig, "", missingSourceMessageFormat, InfileFlagName, URLFlagName, GitRepoFlagName, S3FlagName)
	case len(selected) > 1:
		names := make([]string, 0, len(selected))
		for _, source := range selected {
			names = append(names, source.flagName)
		}
		return Job{}, Errorf(ErrConfig, "", conflictingFlagsFormat, strings.Join(names, ", --"))
	}

	outputPath := strings.TrimSpace(options.OutputFile)
	if outputPath == "" {
		return Job{}, NewError(ErrConfig, "", errors.New(missingOutputMessage))
	}
	absoluteOutput, absoluteError := filepath.Abs(outputPath)
	if absoluteError != nil {
		return Job{}, NewError(ErrConfig, outputPath, absoluteError)
	}
	if err := ensureOutputAbsent(absoluteOutput); err != nil {
		return Job{}, err
	}

	created := Job{
		mode:               selected[0].mode,
		gitBranch:          strings.TrimSpace(options.GitBranch),
		outputPath:         absoluteOutput,
		filesOnly:          options.FilesOnly,
		includeGitMetadata: options.IncludeGitMetadata,
	}
	value := selected[0].value
	switch created.mode {
	case types.ModeLocalFile:
		created.sourceLocalPath = value
	case types.ModeRemoteURL:
		created.sourceURL = value
	case types.ModeGitRepo:
		created.sourceGitURL = value
	case types.ModeObjectStore:
		created.sourceObjectURL = value
	}
	return created, nil
}

type selectedSource struct {
	mode     types.Mode
	flagName string
	value    string
}

func selectedSources(options Options) []selectedSource {
	candidates := []selectedSource{
		{mode: types.ModeLocalFile, flagName: InfileFlagName, value: strings.TrimSpace(options.InputFile)},
		{mode: types.ModeRemoteURL, flagName: URLFlagName, value: strings.TrimSpace(options.DownloadURL)},
		{mode: types.ModeGitRepo, flagName: GitRepoFlagName, value: strings.TrimSpace(options.GitRepositoryURL)},
		{mode: types.ModeObjectStore, flagName: S3FlagName, value: strings.TrimSpace(options.ObjectURL)},
	}
	var selected []selectedSource
	for _, candidate := range candidates {
		if candidate.value != "" {
			selected = append(selected, candidate)
		}
	}
	return selected
}

func ensureOutputAbsent(outputPath string) error {
	info, statError := os.Lstat(outputPath)
	if statError == nil {
		if info.IsDir() {
			return NewError(ErrOutputExists, outputPath, errors.New(outputIsDirectoryMessage))
		}
		return NewError(ErrOutputExists, outputPath, nil)
	}
	if !os.IsNotExist(statError) {
		return NewError(ErrConfig, outputPath, statError)
	}
	return nil
}

// Mode returns the selected acquisition mode.
func (job Job) Mode() types.Mode { return job.mode }

// SourceLocalPath returns the local archive path for ModeLocalFile.
func (job Job) SourceLocalPath() string { return job.sourceLocalPath }

// SourceURL returns the download URL for ModeRemoteURL.
func (job Job) SourceURL() string { return job.sourceURL }

// SourceGitURL returns the repository URL for ModeGitRepo.
func (job Job) SourceGitURL() string { return job.sourceGitURL }

// SourceObjectURL returns the s3:// URL for ModeObjectStore.
func (job Job) SourceObjectURL() string { return job.sourceObjectURL }

// GitBranch returns the optional branch or tag to clone.
func (job Job) GitBranch() string { return job.gitBranch }

// OutputPath returns the absolute word-list destination.
func (job Job) OutputPath() string { return job.outputPath }

// FilesOnly reports whether directory entries are excluded from tokenization.
func (job Job) FilesOnly() bool { return job.filesOnly }

// IncludeGitMetadata reports whether a clone's .git directory is walked.
func (job Job) IncludeGitMetadata() bool { return job.includeGitMetadata }

// Source returns the value of whichever source field is populated.
func (job Job) Source() string {
	switch job.mode {
	case types.ModeLocalFile:
		return job.sourceLocalPath
	case types.ModeRemoteURL:
		return job.sourceURL
	case types.ModeGitRepo:
		return job.sourceGitURL
	case types.ModeObjectStore:
		return job.sourceObjectURL
	default:
		return ""
	}
}

// RedactedSource returns Source with any URL password removed, for logging.
func (job Job) RedactedSource() string {
	source := job.Source()
	if job.mode == types.ModeLocalFile {
		return source
	}
	parsed, parseError := url.Parse(source)
	if parseError != nil || parsed.User == nil {
		return source
	}
	return parsed.Redacted()
}
