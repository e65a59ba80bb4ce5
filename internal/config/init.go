package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/temirov/srcwords/internal/utils"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes configuration into the working directory.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes configuration into the global configuration directory.
	InitTargetGlobal InitTarget = "global"

	defaultTimeout          = "0s"
	defaultProgressInterval = "500ms"
	defaultGitBinary        = "git"
	defaultObjectEndpoint   = "s3.amazonaws.com"
	defaultRegion           = "us-east-1"
	configurationFileMode   = 0o600
	configurationDirMode    = 0o755
)

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
}

// DefaultConfiguration returns the values written by InitializeConfiguration.
// Credentials are left empty so the AWS environment variables apply.
func DefaultConfiguration() ApplicationConfiguration {
	depth := 0
	return ApplicationConfiguration{
		Download: DownloadConfiguration{
			UserAgent:        utils.DefaultUserAgent,
			Timeout:          defaultTimeout,
			ProgressInterval: defaultProgressInterval,
		},
		Git: GitConfiguration{
			Binary: defaultGitBinary,
			Depth:  &depth,
		},
		ObjectStore: ObjectStoreConfiguration{
			Endpoint: defaultObjectEndpoint,
			Region:   defaultRegion,
			UseSSL:   boolPointer(true),
		},
		Walk: WalkConfiguration{
			FilesOnly:  boolPointer(false),
			IncludeGit: boolPointer(false),
		},
		Clipboard: boolPointer(false),
	}
}

// RenderDefaultConfiguration serializes DefaultConfiguration as YAML.
func RenderDefaultConfiguration() ([]byte, error) {
	rendered, err := yaml.Marshal(DefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("render default configuration: %w", err)
	}
	return rendered, nil
}

// InitializeConfiguration writes the default configuration to the requested target.
func InitializeConfiguration(options InitOptions) (string, error) {
	target := options.Target
	if target == "" {
		target = InitTargetLocal
	}
	var destinationPath string
	switch target {
	case InitTargetLocal:
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			current, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("determine working directory for configuration: %w", err)
			}
			workingDirectory = current
		}
		destinationPath = filepath.Join(workingDirectory, utils.LocalConfigFileName)
	case InitTargetGlobal:
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory for configuration: %w", err)
		}
		configurationDirectory := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName)
		if err := os.MkdirAll(configurationDirectory, configurationDirMode); err != nil {
			return "", fmt.Errorf("create configuration directory %s: %w", configurationDirectory, err)
		}
		destinationPath = filepath.Join(configurationDirectory, utils.ConfigFileName)
	default:
		return "", fmt.Errorf("unsupported init target %q", target)
	}

	if _, err := os.Stat(destinationPath); err == nil {
		if !options.Force {
			return "", fmt.Errorf("configuration file already exists at %s", destinationPath)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("inspect configuration path %s: %w", destinationPath, err)
	}

	rendered, renderErr := RenderDefaultConfiguration()
	if renderErr != nil {
		return "", renderErr
	}
	if err := os.WriteFile(destinationPath, rendered, configurationFileMode); err != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, err)
	}

	return destinationPath, nil
}

func boolPointer(value bool) *bool {
	return &value
}
