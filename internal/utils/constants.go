package utils

// Messages reported by the command entry point.
const (
	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes a fatal run error.
	ApplicationExecutionFailedMessage = "srcwords failed"
)

// DefaultUserAgent mimics a desktop browser so mirrors serve the archive directly.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.8; rv:21.0) Gecko/20100101 Firefox/21.0"

// File and directory names shared across packages.
const (
	// GitDirectoryName is the name of the Git repository metadata directory.
	GitDirectoryName = ".git"
	// ConfigFileName is the name of the global configuration file.
	ConfigFileName = "config.yaml"
	// LocalConfigFileName is the name of the per-directory configuration file.
	LocalConfigFileName = ".srcwords.yaml"
	// GlobalConfigDirectoryName is the directory under $HOME holding global configuration.
	GlobalConfigDirectoryName = ".srcwords"
	// EnvironmentFileName is the optional dotenv file read from the working directory.
	EnvironmentFileName = ".env"
	// ScratchDirectoryPrefix prefixes every scratch directory name.
	ScratchDirectoryPrefix = "srcwords-"
)
