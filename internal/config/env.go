package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/temirov/srcwords/internal/utils"
)

// LoadEnvironment reads .env from workingDirectory into the process
// environment. Variables that are already set keep their values and a
// missing file is not an error.
func LoadEnvironment(workingDirectory string) (string, error) {
	environmentPath := filepath.Join(workingDirectory, utils.EnvironmentFileName)
	info, statErr := os.Stat(environmentPath)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return "", nil
		}
		return "", fmt.Errorf("stat environment file %s: %w", environmentPath, statErr)
	}
	if info.IsDir() {
		return "", nil
	}
	if loadErr := godotenv.Load(environmentPath); loadErr != nil {
		return "", fmt.Errorf("load environment file %s: %w", environmentPath, loadErr)
	}
	return environmentPath, nil
}
