// Package extract unpacks downloaded source archives into the scratch tree.
package extract

import (
	"path/filepath"
	"strings"

	"github.com/temirov/srcwords/internal/job"
)

// Format identifies a supported archive layout.
type Format string

const (
	FormatTar      Format = "tar"
	FormatTarGzip  Format = "tar+gzip"
	FormatGzip     Format = "gzip"
	FormatTarZstd  Format = "tar+zstd"
	FormatTarLz4   Format = "tar+lz4"
	FormatTarBzip2 Format = "tar+bzip2"
)

type suffixFormat struct {
	suffix string
	format Format
}

// Longer suffixes precede their shorter tails so ".tar.gz" wins over ".gz".
var recognizedSuffixes = []suffixFormat{
	{suffix: ".tar.gz", format: FormatTarGzip},
	{suffix: ".tar.zst", format: FormatTarZstd},
	{suffix: ".tar.lz4", format: FormatTarLz4},
	{suffix: ".tar.bz2", format: FormatTarBzip2},
	{suffix: ".tgz", format: FormatTarGzip},
	{suffix: ".tzst", format: FormatTarZstd},
	{suffix: ".tbz2", format: FormatTarBzip2},
	{suffix: ".tbz", format: FormatTarBzip2},
	{suffix: ".tar", format: FormatTar},
	{suffix: ".gz", format: FormatGzip},
}

// DetectFormat maps an archive file name to its format by extension, case-insensitively.
// Unknown extensions fail with job.ErrUnsupportedFormat naming the file.
func DetectFormat(archivePath string) (Format, error) {
	name := strings.ToLower(filepath.Base(archivePath))
	for _, candidate := range recognizedSuffixes {
		if strings.HasSuffix(name, candidate.suffix) && len(name) > len(candidate.suffix) {
			return candidate.format, nil
		}
	}
	return "", job.NewError(job.ErrUnsupportedFormat, archivePath, nil)
}

// SupportedExtensions lists every recognized extension, for help output.
func SupportedExtensions() []string {
	extensions := make([]string, 0, len(recognizedSuffixes))
	for _, candidate := range recognizedSuffixes {
		extensions = append(extensions, candidate.suffix)
	}
	return extensions
}

// stripGzipSuffix returns the file name a bare .gz payload is written under.
func stripGzipSuffix(archivePath string) string {
	base := filepath.Base(archivePath)
	extension := filepath.Ext(base)
	return strings.TrimSuffix(base, extension)
}
