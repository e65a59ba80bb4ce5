// Package utils provides helper functions shared by the srcwords packages.
package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	unknownVersion     = "unknown"
	develBuildVersion  = "(devel)"
	gitExecutableName  = "git"
	gitDescribeCommand = "describe"
)

// GetApplicationVersion reports the module version recorded in the binary,
// falling back to git describe when running from a checkout.
func GetApplicationVersion() string {
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable && buildInfo.Main.Version != "" && buildInfo.Main.Version != develBuildVersion {
		return buildInfo.Main.Version
	}

	repositoryDirectory, lookupError := findGitDirectory(".")
	if lookupError != nil || repositoryDirectory == "" {
		return unknownVersion
	}
	if exactTag := describeWithGit(repositoryDirectory, "--tags", "--exact-match"); exactTag != "" {
		return exactTag
	}
	if longDescription := describeWithGit(repositoryDirectory, "--tags", "--long", "--dirty"); longDescription != "" {
		return longDescription
	}
	return unknownVersion
}

func describeWithGit(repositoryDirectory string, arguments ...string) string {
	// #nosec G204
	command := exec.Command(gitExecutableName, append([]string{gitDescribeCommand}, arguments...)...)
	command.Dir = repositoryDirectory
	output, commandError := command.Output()
	if commandError != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

// findGitDirectory walks upward from startDirectory until it finds a directory containing .git.
func findGitDirectory(startDirectory string) (string, error) {
	absoluteStartDirectory, errorAbsolute := filepath.Abs(startDirectory)
	if errorAbsolute != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", startDirectory, errorAbsolute)
	}

	currentDirectory := absoluteStartDirectory
	for {
		fileInformation, errorStat := os.Stat(filepath.Join(currentDirectory, GitDirectoryName))
		if errorStat == nil && fileInformation.IsDir() {
			return currentDirectory, nil
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			break
		}
		currentDirectory = parentDirectory
	}

	return "", fmt.Errorf(".git directory not found in or above %s", absoluteStartDirectory)
}
