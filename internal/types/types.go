// Package types defines the cross-package data structures used by the srcwords CLI.
package types

// Mode selects how the source tree is acquired.
type Mode string

const (
	ModeLocalFile   Mode = "local_file"
	ModeRemoteURL   Mode = "remote_url"
	ModeGitRepo     Mode = "git_repo"
	ModeObjectStore Mode = "object_store"
)

// RequiresExtraction reports whether the acquired artifact is an archive that must be unpacked.
func (mode Mode) RequiresExtraction() bool {
	return mode != ModeGitRepo
}

// Artifact is the result of acquisition: an archive to unpack, or nothing when
// the acquirer populated the tree directory itself.
type Artifact struct {
	ArchivePath string
	Downloaded  bool
	SizeBytes   int64
}

// HasArchive reports whether the artifact points at an archive file.
func (artifact Artifact) HasArchive() bool {
	return artifact.ArchivePath != ""
}
