package extract

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/srcwords/internal/utils"
)

const (
	warningSkippedLink  = "skipping link that points outside the archive"
	warningSkippedEntry = "skipping unsupported archive entry"
	errorUnsafePath     = "entry %q escapes the destination directory"
	errorLinkedParent   = "entry %q passes through symbolic link %s"
)

func (extractor *Extractor) unpackTar(ctx context.Context, stream io.Reader, destination string) error {
	reader := tar.NewReader(stream)
	for {
		if contextError := ctx.Err(); contextError != nil {
			return contextError
		}
		header, nextError := reader.Next()
		if errors.Is(nextError, io.EOF) {
			return nil
		}
		if nextError != nil {
			return fmt.Errorf("read tar header: %w", nextError)
		}

		target, pathError := resolveEntryPath(destination, header.Name)
		if pathError != nil {
			return pathError
		}
		if target == filepath.Clean(destination) {
			continue
		}
		if parentError := ensureNoLinkedParent(destination, target, header.Name); parentError != nil {
			return parentError
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if mkdirError := os.MkdirAll(target, directoryMode); mkdirError != nil {
				return fmt.Errorf("create directory %s: %w", header.Name, mkdirError)
			}
		case tar.TypeReg:
			mode := header.FileInfo().Mode().Perm() | minimumFileMode
			if writeError := writeFile(target, reader, mode); writeError != nil {
				return fmt.Errorf("write %s: %w", header.Name, writeError)
			}
		case tar.TypeSymlink:
			if linkError := extractor.createSymlink(destination, target, header); linkError != nil {
				return linkError
			}
		case tar.TypeLink:
			if linkError := extractor.createHardLink(destination, target, header); linkError != nil {
				return linkError
			}
		case tar.TypeXGlobalHeader:
			continue
		default:
			extractor.logger.Warn(warningSkippedEntry, zap.String("entry", header.Name), zap.String("type", string(header.Typeflag)))
		}
	}
}

// resolveEntryPath joins an archive entry name onto destination, rejecting
// absolute names and any name that climbs out of destination.
func resolveEntryPath(destination string, entryName string) (string, error) {
	normalized := strings.ReplaceAll(entryName, "\\", "/")
	if strings.HasPrefix(normalized, "/") || filepath.IsAbs(entryName) {
		return "", fmt.Errorf(errorUnsafePath, entryName)
	}
	target := filepath.Join(destination, filepath.FromSlash(normalized))
	if !utils.IsWithinDirectory(target, destination) {
		return "", fmt.Errorf(errorUnsafePath, entryName)
	}
	return target, nil
}

func (extractor *Extractor) createSymlink(destination string, target string, header *tar.Header) error {
	linkName := header.Linkname
	resolved := linkName
	if !filepath.IsAbs(linkName) {
		resolved = filepath.Join(filepath.Dir(target), linkName)
	}
	if filepath.IsAbs(linkName) || !utils.IsWithinDirectory(resolved, destination) {
		extractor.logger.Warn(warningSkippedLink, zap.String("entry", header.Name), zap.String("link", linkName))
		return nil
	}
	if prepareError := prepareTarget(target); prepareError != nil {
		return prepareError
	}
	if symlinkError := os.Symlink(linkName, target); symlinkError != nil {
		return fmt.Errorf("create symlink %s: %w", header.Name, symlinkError)
	}
	// The string check above assumes every directory on the way is real; a
	// target reached through links created earlier is judged by where it lands.
	if landed, evalError := filepath.EvalSymlinks(target); evalError == nil && !utils.IsWithinDirectory(landed, realDirectory(destination)) {
		extractor.logger.Warn(warningSkippedLink, zap.String("entry", header.Name), zap.String("link", linkName))
		if removeError := os.Remove(target); removeError != nil {
			return fmt.Errorf("remove symlink %s: %w", header.Name, removeError)
		}
	}
	return nil
}

func (extractor *Extractor) createHardLink(destination string, target string, header *tar.Header) error {
	linkTarget, pathError := resolveEntryPath(destination, header.Linkname)
	if pathError != nil {
		extractor.logger.Warn(warningSkippedLink, zap.String("entry", header.Name), zap.String("link", header.Linkname))
		return nil
	}
	if parentError := ensureNoLinkedParent(destination, linkTarget, header.Linkname); parentError != nil {
		return parentError
	}
	if prepareError := prepareTarget(target); prepareError != nil {
		return prepareError
	}
	if linkError := os.Link(linkTarget, target); linkError != nil {
		return fmt.Errorf("create hard link %s: %w", header.Name, linkError)
	}
	return nil
}

// ensureNoLinkedParent fails when any existing directory between destination
// and target is a symbolic link. Writing through such a component would land
// wherever the link points, which string checks on the entry name cannot see.
func ensureNoLinkedParent(destination string, target string, entryName string) error {
	relativeParent, relativeError := filepath.Rel(destination, filepath.Dir(target))
	if relativeError != nil {
		return fmt.Errorf(errorUnsafePath, entryName)
	}
	if relativeParent == "." {
		return nil
	}
	current := filepath.Clean(destination)
	for _, component := range strings.Split(relativeParent, string(filepath.Separator)) {
		current = filepath.Join(current, component)
		info, statError := os.Lstat(current)
		if os.IsNotExist(statError) {
			return nil
		}
		if statError != nil {
			return fmt.Errorf("inspect %s: %w", current, statError)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf(errorLinkedParent, entryName, current)
		}
	}
	return nil
}

// realDirectory resolves links in directory itself, falling back to the
// cleaned path when it cannot be resolved.
func realDirectory(directory string) string {
	resolved, evalError := filepath.EvalSymlinks(directory)
	if evalError != nil {
		return filepath.Clean(directory)
	}
	return resolved
}

// prepareTarget creates the parent directory and removes any non-directory
// already at target so writes never follow a previously extracted link.
func prepareTarget(target string) error {
	if mkdirError := os.MkdirAll(filepath.Dir(target), directoryMode); mkdirError != nil {
		return fmt.Errorf("create parent of %s: %w", target, mkdirError)
	}
	info, statError := os.Lstat(target)
	if statError == nil && !info.IsDir() {
		if removeError := os.Remove(target); removeError != nil {
			return fmt.Errorf("replace %s: %w", target, removeError)
		}
	}
	return nil
}

func writeFile(target string, source io.Reader, mode os.FileMode) error {
	if prepareError := prepareTarget(target); prepareError != nil {
		return prepareError
	}
	file, openError := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if openError != nil {
		return openError
	}
	if _, copyError := io.Copy(file, source); copyError != nil {
		_ = file.Close()
		return copyError
	}
	return file.Close()
}
