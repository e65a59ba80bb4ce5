// Package config loads srcwords defaults from global and local YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/temirov/srcwords/internal/utils"
)

const (
	errorWorkingDirectoryFormat = "determine working directory: %w"
	errorResolvePathFormat      = "resolve configuration path %s: %w"
	errorStatFormat             = "stat configuration %s: %w"
	errorDirectoryFormat        = "configuration path %s is a directory"
	errorReadFormat             = "read configuration from %s: %w"
	errorDecodeFormat           = "decode configuration from %s: %w"
	errorDurationFormat         = "invalid %s duration %q: %w"
	errorNegativeFormat         = "%s must not be negative, got %d"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds defaults for a word-list run. Unset fields
// stay nil or empty so that later sources and flags can tell them apart.
type ApplicationConfiguration struct {
	Download    DownloadConfiguration    `mapstructure:"download" yaml:"download"`
	Git         GitConfiguration         `mapstructure:"git" yaml:"git"`
	ObjectStore ObjectStoreConfiguration `mapstructure:"object_store" yaml:"object_store"`
	Walk        WalkConfiguration        `mapstructure:"walk" yaml:"walk"`
	Scratch     ScratchConfiguration     `mapstructure:"scratch" yaml:"scratch"`
	Clipboard   *bool                    `mapstructure:"copy" yaml:"copy"`
}

// DownloadConfiguration configures HTTP and object store transfers.
type DownloadConfiguration struct {
	UserAgent        string `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout          string `mapstructure:"timeout" yaml:"timeout"`
	ProgressInterval string `mapstructure:"progress_interval" yaml:"progress_interval"`
}

// GitConfiguration configures repository cloning.
type GitConfiguration struct {
	Binary string `mapstructure:"binary" yaml:"binary"`
	Depth  *int   `mapstructure:"depth" yaml:"depth"`
	Branch string `mapstructure:"branch" yaml:"branch"`
}

// ObjectStoreConfiguration configures the S3-compatible endpoint used by --s3.
type ObjectStoreConfiguration struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	UseSSL    *bool  `mapstructure:"use_ssl" yaml:"use_ssl"`
}

// WalkConfiguration configures tree enumeration.
type WalkConfiguration struct {
	FilesOnly  *bool `mapstructure:"files_only" yaml:"files_only"`
	IncludeGit *bool `mapstructure:"include_git" yaml:"include_git"`
}

// ScratchConfiguration configures where scratch directories are created.
type ScratchConfiguration struct {
	TempRoot string `mapstructure:"temp_root" yaml:"temp_root"`
}

// LoadApplicationConfiguration loads configuration from the global file and
// then the local or explicit file, the latter taking precedence per field.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf(errorWorkingDirectoryFormat, err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf(errorResolvePathFormat, explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.LocalConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf(errorStatFormat, path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf(errorDirectoryFormat, path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf(errorReadFormat, path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf(errorDecodeFormat, path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Download = result.Download.merge(override.Download)
	result.Git = result.Git.merge(override.Git)
	result.ObjectStore = result.ObjectStore.merge(override.ObjectStore)
	result.Walk = result.Walk.merge(override.Walk)
	if override.Scratch.TempRoot != "" {
		result.Scratch.TempRoot = override.Scratch.TempRoot
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	return result
}

// Validate reports malformed durations and negative depths before any run starts.
func (config ApplicationConfiguration) Validate() error {
	if _, err := config.Download.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := config.Download.ProgressIntervalDuration(); err != nil {
		return err
	}
	if config.Git.Depth != nil && *config.Git.Depth < 0 {
		return fmt.Errorf(errorNegativeFormat, "git.depth", *config.Git.Depth)
	}
	return nil
}

func (config DownloadConfiguration) merge(override DownloadConfiguration) DownloadConfiguration {
	result := config
	if override.UserAgent != "" {
		result.UserAgent = override.UserAgent
	}
	if override.Timeout != "" {
		result.Timeout = override.Timeout
	}
	if override.ProgressInterval != "" {
		result.ProgressInterval = override.ProgressInterval
	}
	return result
}

// TimeoutDuration parses Timeout; an empty value means no limit.
func (config DownloadConfiguration) TimeoutDuration() (time.Duration, error) {
	return parseDuration("download.timeout", config.Timeout)
}

// ProgressIntervalDuration parses ProgressInterval; an empty value selects the default.
func (config DownloadConfiguration) ProgressIntervalDuration() (time.Duration, error) {
	return parseDuration("download.progress_interval", config.ProgressInterval)
}

func (config GitConfiguration) merge(override GitConfiguration) GitConfiguration {
	result := config
	if override.Binary != "" {
		result.Binary = override.Binary
	}
	if override.Depth != nil {
		result.Depth = cloneInt(override.Depth)
	}
	if override.Branch != "" {
		result.Branch = override.Branch
	}
	return result
}

// DepthValue returns the configured clone depth, zero for a full clone.
func (config GitConfiguration) DepthValue() int {
	if config.Depth == nil {
		return 0
	}
	return *config.Depth
}

func (config ObjectStoreConfiguration) merge(override ObjectStoreConfiguration) ObjectStoreConfiguration {
	result := config
	if override.Endpoint != "" {
		result.Endpoint = override.Endpoint
	}
	if override.Region != "" {
		result.Region = override.Region
	}
	if override.AccessKey != "" {
		result.AccessKey = override.AccessKey
	}
	if override.SecretKey != "" {
		result.SecretKey = override.SecretKey
	}
	if override.UseSSL != nil {
		result.UseSSL = cloneBool(override.UseSSL)
	}
	return result
}

func (config WalkConfiguration) merge(override WalkConfiguration) WalkConfiguration {
	result := config
	if override.FilesOnly != nil {
		result.FilesOnly = cloneBool(override.FilesOnly)
	}
	if override.IncludeGit != nil {
		result.IncludeGit = cloneBool(override.IncludeGit)
	}
	return result
}

func parseDuration(key string, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf(errorDurationFormat, key, value, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf(errorDurationFormat, key, value, fmt.Errorf("negative duration"))
	}
	return parsed, nil
}

// BoolValue dereferences value, returning fallback when it is unset.
func BoolValue(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
