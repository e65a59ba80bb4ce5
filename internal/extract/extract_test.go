package extract_test

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"go.uber.org/zap"

	"github.com/temirov/srcwords/internal/extract"
	"github.com/temirov/srcwords/internal/job"
)

type archiveEntry struct {
	name     string
	body     string
	typeflag byte
	linkname string
}

var sourceTreeEntries = []archiveEntry{
	{name: "src/", typeflag: tar.TypeDir},
	{name: "src/main.go", body: "package main", typeflag: tar.TypeReg},
	{name: "src/lib/util.go", body: "package lib", typeflag: tar.TypeReg},
}

func buildTar(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := tar.NewWriter(&buffer)
	for _, entry := range entries {
		header := &tar.Header{Name: entry.name, Typeflag: entry.typeflag, Linkname: entry.linkname, Mode: 0o644}
		if entry.typeflag == tar.TypeDir {
			header.Mode = 0o755
		}
		if entry.typeflag == tar.TypeReg {
			header.Size = int64(len(entry.body))
		}
		if err := writer.WriteHeader(header); err != nil {
			t.Fatalf("write header %s: %v", entry.name, err)
		}
		if entry.typeflag == tar.TypeReg {
			if _, err := writer.Write([]byte(entry.body)); err != nil {
				t.Fatalf("write body %s: %v", entry.name, err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	return buffer.Bytes()
}

func compressWith(t *testing.T, payload []byte, wrap func(io.Writer) (io.WriteCloser, error)) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer, err := wrap(&buffer)
	if err != nil {
		t.Fatalf("create compressor: %v", err)
	}
	if _, err := writer.Write(payload); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close compressor: %v", err)
	}
	return buffer.Bytes()
}

func gzipWriter(destination io.Writer) (io.WriteCloser, error) { return gzip.NewWriter(destination), nil }

func zstdWriter(destination io.Writer) (io.WriteCloser, error) { return zstd.NewWriter(destination) }

func lz4Writer(destination io.Writer) (io.WriteCloser, error) { return lz4.NewWriter(destination), nil }

func writeArchive(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

func assertFile(t *testing.T, path string, expected string) {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if string(content) != expected {
		t.Fatalf("unexpected content in %s: %q", path, string(content))
	}
}

func TestDetectFormat(t *testing.T) {
	testCases := []struct {
		name     string
		expected extract.Format
	}{
		{name: "node-v0.10.12.tar.gz", expected: extract.FormatTarGzip},
		{name: "SRC.TGZ", expected: extract.FormatTarGzip},
		{name: "src.tar", expected: extract.FormatTar},
		{name: "src.gz", expected: extract.FormatGzip},
		{name: "src.tar.zst", expected: extract.FormatTarZstd},
		{name: "src.tzst", expected: extract.FormatTarZstd},
		{name: "src.tar.lz4", expected: extract.FormatTarLz4},
		{name: "src.tar.bz2", expected: extract.FormatTarBzip2},
		{name: "src.tbz2", expected: extract.FormatTarBzip2},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			format, err := extract.DetectFormat(testCase.name)
			if err != nil {
				t.Fatalf("DetectFormat error: %v", err)
			}
			if format != testCase.expected {
				t.Fatalf("expected %s, got %s", testCase.expected, format)
			}
		})
	}

	for _, unsupported := range []string{"src.zip", "src.7z", "README", ".gz", "src.tar.xz"} {
		if _, err := extract.DetectFormat(unsupported); !errors.Is(err, job.ErrUnsupportedFormat) {
			t.Fatalf("expected unsupported format for %s, got %v", unsupported, err)
		}
	}
}

func TestExtractCompressedTarballs(t *testing.T) {
	tarball := buildTar(t, sourceTreeEntries)
	testCases := []struct {
		name    string
		content []byte
	}{
		{name: "src.tar", content: tarball},
		{name: "src.tar.gz", content: compressWith(t, tarball, gzipWriter)},
		{name: "src.gz", content: compressWith(t, tarball, gzipWriter)},
		{name: "src.tar.zst", content: compressWith(t, tarball, zstdWriter)},
		{name: "src.tar.lz4", content: compressWith(t, tarball, lz4Writer)},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			archivePath := writeArchive(t, testCase.name, testCase.content)
			destination := t.TempDir()
			if err := extract.NewExtractor(zap.NewNop()).Extract(context.Background(), archivePath, destination); err != nil {
				t.Fatalf("Extract error: %v", err)
			}
			assertFile(t, filepath.Join(destination, "src", "main.go"), "package main")
			assertFile(t, filepath.Join(destination, "src", "lib", "util.go"), "package lib")
		})
	}
}

func TestExtractBareGzipWritesSinglePayload(t *testing.T) {
	archivePath := writeArchive(t, "schema.sql.gz", compressWith(t, []byte("create table users;"), gzipWriter))
	destination := t.TempDir()
	if err := extract.NewExtractor(nil).Extract(context.Background(), archivePath, destination); err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	assertFile(t, filepath.Join(destination, "schema.sql"), "create table users;")
}

func TestExtractRejectsUnsupportedFormatWithoutReading(t *testing.T) {
	destination := t.TempDir()
	err := extract.NewExtractor(nil).Extract(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), destination)
	if !errors.Is(err, job.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
	entries, _ := os.ReadDir(destination)
	if len(entries) != 0 {
		t.Fatalf("expected no extraction, found %d entries", len(entries))
	}
}

func TestExtractReportsCorruptStreams(t *testing.T) {
	tarball := compressWith(t, buildTar(t, sourceTreeEntries), gzipWriter)
	testCases := []struct {
		name    string
		content []byte
	}{
		{name: "garbage.tar.gz", content: []byte("definitely not gzip")},
		{name: "truncated.tar.gz", content: tarball[:len(tarball)/2]},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			archivePath := writeArchive(t, testCase.name, testCase.content)
			err := extract.NewExtractor(nil).Extract(context.Background(), archivePath, t.TempDir())
			if !errors.Is(err, job.ErrExtraction) {
				t.Fatalf("expected extraction error, got %v", err)
			}
		})
	}
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	archivePath := writeArchive(t, "evil.tar", buildTar(t, []archiveEntry{
		{name: "../../escape.txt", body: "x", typeflag: tar.TypeReg},
	}))
	parent := t.TempDir()
	destination := filepath.Join(parent, "tree")
	if err := os.Mkdir(destination, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	err := extract.NewExtractor(nil).Extract(context.Background(), archivePath, destination)
	if !errors.Is(err, job.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(parent, "escape.txt")); !os.IsNotExist(statErr) {
		t.Fatalf("traversal entry written outside destination")
	}
}

func TestExtractCreatesOnlyContainedLinks(t *testing.T) {
	archivePath := writeArchive(t, "links.tar", buildTar(t, []archiveEntry{
		{name: "web/index.php", body: "<?php", typeflag: tar.TypeReg},
		{name: "web/home.php", typeflag: tar.TypeSymlink, linkname: "index.php"},
		{name: "web/passwd", typeflag: tar.TypeSymlink, linkname: "/etc/passwd"},
		{name: "web/copy.php", typeflag: tar.TypeLink, linkname: "web/index.php"},
	}))
	destination := t.TempDir()
	if err := extract.NewExtractor(nil).Extract(context.Background(), archivePath, destination); err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if target, err := os.Readlink(filepath.Join(destination, "web", "home.php")); err != nil || target != "index.php" {
		t.Fatalf("expected contained symlink, got %q (%v)", target, err)
	}
	if _, err := os.Lstat(filepath.Join(destination, "web", "passwd")); !os.IsNotExist(err) {
		t.Fatalf("escaping symlink must be skipped")
	}
	assertFile(t, filepath.Join(destination, "web", "copy.php"), "<?php")
}

func TestExtractRefusesWritingThroughChainedLinks(t *testing.T) {
	archivePath := writeArchive(t, "chain.tar", buildTar(t, []archiveEntry{
		{name: "d1", typeflag: tar.TypeSymlink, linkname: "."},
		{name: "d1/d2", typeflag: tar.TypeSymlink, linkname: "."},
		{name: "d1/d2/l", typeflag: tar.TypeSymlink, linkname: "../.."},
		{name: "l/pwned.txt", body: "escaped", typeflag: tar.TypeReg},
	}))
	base := t.TempDir()
	destination := filepath.Join(base, "scratch", "tree")
	if err := os.MkdirAll(destination, 0o755); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}

	err := extract.NewExtractor(nil).Extract(context.Background(), archivePath, destination)
	if !errors.Is(err, job.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
	for _, outside := range []string{
		filepath.Join(base, "pwned.txt"),
		filepath.Join(base, "scratch", "pwned.txt"),
		filepath.Join(base, "l"),
		filepath.Join(base, "scratch", "l"),
	} {
		if _, statErr := os.Lstat(outside); !os.IsNotExist(statErr) {
			t.Fatalf("expected nothing at %s, got %v", outside, statErr)
		}
	}
	if _, statErr := os.Lstat(filepath.Join(destination, "l")); !os.IsNotExist(statErr) {
		t.Fatalf("chained link must not be created")
	}
}

func TestExtractSkipsLinkResolvingOutsideThroughEarlierLink(t *testing.T) {
	archivePath := writeArchive(t, "hop.tar", buildTar(t, []archiveEntry{
		{name: "up", typeflag: tar.TypeSymlink, linkname: "."},
		{name: "escape", typeflag: tar.TypeSymlink, linkname: "up/../outside"},
		{name: "escape/pwned.txt", body: "escaped", typeflag: tar.TypeReg},
	}))
	base := t.TempDir()
	destination := filepath.Join(base, "tree")
	outside := filepath.Join(base, "outside")
	for _, directory := range []string{destination, outside} {
		if err := os.MkdirAll(directory, 0o755); err != nil {
			t.Fatalf("MkdirAll error: %v", err)
		}
	}

	if err := extract.NewExtractor(nil).Extract(context.Background(), archivePath, destination); err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if _, statErr := os.Lstat(filepath.Join(outside, "pwned.txt")); !os.IsNotExist(statErr) {
		t.Fatalf("file escaped the destination: %v", statErr)
	}
	assertFile(t, filepath.Join(destination, "escape", "pwned.txt"), "escaped")
}

func TestExtractStopsWhenCancelled(t *testing.T) {
	archivePath := writeArchive(t, "src.tar", buildTar(t, sourceTreeEntries))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := extract.NewExtractor(nil).Extract(ctx, archivePath, t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
