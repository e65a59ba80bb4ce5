// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/srcwords/internal/acquire"
	"github.com/temirov/srcwords/internal/config"
	"github.com/temirov/srcwords/internal/extract"
	"github.com/temirov/srcwords/internal/job"
	"github.com/temirov/srcwords/internal/pipeline"
	"github.com/temirov/srcwords/internal/services/clipboard"
	"github.com/temirov/srcwords/internal/types"
	"github.com/temirov/srcwords/internal/utils"
	"github.com/temirov/srcwords/internal/walk"
	"github.com/temirov/srcwords/internal/wordlist"
)

const (
	branchFlagName     = "branch"
	filesOnlyFlagName  = "files-only"
	includeGitFlagName = "include-git"
	copyFlagName       = "copy"
	tempDirFlagName    = "temp-dir"
	configFlagName     = "config"
	versionFlagName    = "version"
	globalFlagName     = "global"
	forceFlagName      = "force"

	rootUse              = "srcwords"
	rootShortDescription = "build a word list from the paths of a source archive"
	rootLongDescription  = `srcwords acquires a source tree from a local archive, a download URL,
a git repository, or an S3 object, and writes every distinct path segment
of the tree to the output file, one per line.
Exactly one of --infile, --url, --gitrepo or --s3 is required together with --outfile.`
	rootUsageExample = `  # Build a word list from a local tarball
  srcwords -i wordpress-6.4.tar.gz -o wordpress.txt

  # Download an archive and list files only
  srcwords -u https://example.com/releases/app-1.0.tar.gz -o app.txt --files-only

  # Clone a tag of a repository
  srcwords -g https://github.com/example/app.git -b v1.0 -o app.txt`
	initUse              = "init"
	initShortDescription = "write a default configuration file"
	initLongDescription  = `Write the default configuration to ./.srcwords.yaml, or to
~/.srcwords/config.yaml with --global.`

	infileFlagDescription     = "local archive to read"
	urlFlagDescription        = "remote archive URL to download"
	gitRepoFlagDescription    = "git repository URL to clone"
	s3FlagDescription         = "S3 object URL (s3://bucket/key) to download"
	outfileFlagDescription    = "word list destination; must not exist"
	branchFlagDescription     = "git branch or tag to clone"
	filesOnlyFlagDescription  = "tokenize file paths only, skipping directory entries"
	includeGitFlagDescription = "include the cloned .git directory"
	copyFlagDescription       = "copy the word list to the clipboard"
	tempDirFlagDescription    = "directory in which the scratch directory is created"
	configFlagDescription     = "configuration file overriding ./" + utils.LocalConfigFileName
	versionFlagDescription    = "display application version"
	globalFlagDescription     = "write the global configuration instead of the local one"
	forceFlagDescription      = "overwrite an existing configuration file"

	versionTemplate             = "srcwords version: %s\n"
	initCompletedTemplate       = "configuration written to %s\n"
	workingDirectoryErrorFormat = "unable to determine working directory: %w"
	warningClipboardFailed      = "failed to copy word list to clipboard"
	logEnvironmentLoaded        = "loaded environment file"
	logClipboardCopied          = "word list copied to clipboard"
)

// Dependencies are the collaborators the commands use for side effects.
type Dependencies struct {
	Logger    *zap.Logger
	Clipboard clipboard.Copier
	Output    io.Writer
}

// runOptions stores the values bound to the root command's flags.
type runOptions struct {
	inputFile        string
	downloadURL      string
	gitRepositoryURL string
	objectURL        string
	outputFile       string
	gitBranch        string
	filesOnly        bool
	includeGit       bool
	copyToClipboard  bool
	tempRoot         string
	configPath       string
	showVersion      bool
}

// Execute runs the srcwords application with the process arguments.
func Execute(ctx context.Context, logger *zap.Logger) error {
	rootCommand := createRootCommand(Dependencies{
		Logger:    logger,
		Clipboard: clipboard.NewService(),
		Output:    os.Stdout,
	})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// createRootCommand builds the root Cobra command.
func createRootCommand(dependencies Dependencies) *cobra.Command {
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.Output == nil {
		dependencies.Output = io.Discard
	}
	var options runOptions

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       rootUsageExample,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if options.showVersion {
				_, err := fmt.Fprintf(dependencies.Output, versionTemplate, utils.GetApplicationVersion())
				return err
			}
			return runWordList(command, dependencies, options)
		},
	}

	flagSet := rootCommand.Flags()
	flagSet.StringVarP(&options.inputFile, job.InfileFlagName, "i", "", infileFlagDescription)
	flagSet.StringVarP(&options.downloadURL, job.URLFlagName, "u", "", urlFlagDescription)
	flagSet.StringVarP(&options.gitRepositoryURL, job.GitRepoFlagName, "g", "", gitRepoFlagDescription)
	flagSet.StringVarP(&options.objectURL, job.S3FlagName, "s", "", s3FlagDescription)
	flagSet.StringVarP(&options.outputFile, job.OutfileFlagName, "o", "", outfileFlagDescription)
	flagSet.StringVarP(&options.gitBranch, branchFlagName, "b", "", branchFlagDescription)
	registerBooleanFlag(flagSet, &options.filesOnly, filesOnlyFlagName, false, filesOnlyFlagDescription)
	registerBooleanFlag(flagSet, &options.includeGit, includeGitFlagName, false, includeGitFlagDescription)
	registerBooleanFlag(flagSet, &options.copyToClipboard, copyFlagName, false, copyFlagDescription)
	flagSet.StringVar(&options.tempRoot, tempDirFlagName, "", tempDirFlagDescription)
	flagSet.StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	flagSet.BoolVar(&options.showVersion, versionFlagName, false, versionFlagDescription)

	rootCommand.AddCommand(createInitCommand(dependencies))
	rootCommand.InitDefaultHelpCmd()
	return rootCommand
}

// createInitCommand returns the init subcommand.
func createInitCommand(dependencies Dependencies) *cobra.Command {
	var global bool
	var force bool
	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			writtenPath, err := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force})
			if err != nil {
				return job.NewError(job.ErrConfig, "", err)
			}
			_, err = fmt.Fprintf(dependencies.Output, initCompletedTemplate, writtenPath)
			return err
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	return initCommand
}

// runWordList resolves configuration, validates the job, and runs the pipeline.
func runWordList(command *cobra.Command, dependencies Dependencies, options runOptions) error {
	logger := dependencies.Logger
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return job.NewError(job.ErrConfig, "", fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError))
	}
	environmentPath, environmentError := config.LoadEnvironment(workingDirectory)
	if environmentError != nil {
		return job.NewError(job.ErrConfig, "", environmentError)
	}
	if environmentPath != "" {
		logger.Debug(logEnvironmentLoaded, zap.String("path", environmentPath))
	}
	applicationConfig, configError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: options.configPath,
	})
	if configError != nil {
		return job.NewError(job.ErrConfig, options.configPath, configError)
	}
	if validationError := applicationConfig.Validate(); validationError != nil {
		return job.NewError(job.ErrConfig, "", validationError)
	}

	flags := command.Flags()
	filesOnly := resolveBoolean(flags.Changed(filesOnlyFlagName), options.filesOnly, applicationConfig.Walk.FilesOnly)
	includeGit := resolveBoolean(flags.Changed(includeGitFlagName), options.includeGit, applicationConfig.Walk.IncludeGit)
	copyToClipboard := resolveBoolean(flags.Changed(copyFlagName), options.copyToClipboard, applicationConfig.Clipboard)
	tempRoot := options.tempRoot
	if tempRoot == "" {
		tempRoot = applicationConfig.Scratch.TempRoot
	}

	request, jobError := job.New(job.Options{
		InputFile:          options.inputFile,
		DownloadURL:        options.downloadURL,
		GitRepositoryURL:   options.gitRepositoryURL,
		ObjectURL:          options.objectURL,
		GitBranch:          options.gitBranch,
		OutputFile:         options.outputFile,
		FilesOnly:          filesOnly,
		IncludeGitMetadata: includeGit,
	})
	if jobError != nil {
		return jobError
	}

	runner := pipeline.NewRunner(
		logger,
		newDispatcher(applicationConfig, logger),
		extract.NewExtractor(logger),
		walk.NewWalker(logger),
		tempRoot,
	)
	result, runError := runner.Run(command.Context(), request)
	if runError != nil {
		return runError
	}

	if copyToClipboard && dependencies.Clipboard != nil {
		if copyError := dependencies.Clipboard.Copy(wordlist.Render(result.Tokens)); copyError != nil {
			logger.Warn(warningClipboardFailed, zap.Error(copyError))
		} else {
			logger.Info(logClipboardCopied, zap.Int("tokens", result.TokenCount))
		}
	}
	return nil
}

// newDispatcher registers one acquirer per mode, configured from applicationConfig.
// Durations were checked by Validate so parse errors are not expected here.
func newDispatcher(applicationConfig config.ApplicationConfiguration, logger *zap.Logger) *acquire.Dispatcher {
	timeout, _ := applicationConfig.Download.TimeoutDuration()
	progressInterval, _ := applicationConfig.Download.ProgressIntervalDuration()
	objectStore := applicationConfig.ObjectStore

	return acquire.NewDispatcher(map[types.Mode]acquire.Acquirer{
		types.ModeLocalFile: acquire.NewLocalFileAcquirer(),
		types.ModeRemoteURL: acquire.NewHTTPDownloader(nil, logger).
			WithUserAgent(applicationConfig.Download.UserAgent).
			WithTimeout(timeout).
			WithProgressInterval(progressInterval),
		types.ModeGitRepo: acquire.NewGitCloner(applicationConfig.Git.Binary, logger).
			WithDepth(applicationConfig.Git.DepthValue()).
			WithDefaultBranch(applicationConfig.Git.Branch),
		types.ModeObjectStore: acquire.NewObjectStoreDownloader(acquire.ObjectStoreSettings{
			Endpoint:  objectStore.Endpoint,
			Region:    objectStore.Region,
			AccessKey: objectStore.AccessKey,
			SecretKey: objectStore.SecretKey,
			UseSSL:    config.BoolValue(objectStore.UseSSL, true),
		}, logger).WithProgressInterval(progressInterval),
	})
}

// resolveBoolean prefers an explicitly set flag over the configured value.
func resolveBoolean(flagChanged bool, flagValue bool, configured *bool) bool {
	if flagChanged {
		return flagValue
	}
	return config.BoolValue(configured, flagValue)
}
