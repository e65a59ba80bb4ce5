package acquire

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/srcwords/internal/job"
	"github.com/temirov/srcwords/internal/utils"
)

func TestValidateDownloadURL(t *testing.T) {
	testCases := []struct {
		name         string
		rawURL       string
		expectedName string
		expectError  bool
	}{
		{name: "https archive", rawURL: "https://example.com/releases/src.tar.gz", expectedName: "src.tar.gz"},
		{name: "http with query", rawURL: "http://example.com/src.tgz?token=1", expectedName: "src.tgz"},
		{name: "ftp scheme", rawURL: "ftp://example.com/src.tgz", expectError: true},
		{name: "no host", rawURL: "https:///src.tgz", expectError: true},
		{name: "no path", rawURL: "https://example.com", expectError: true},
		{name: "trailing slash", rawURL: "https://example.com/releases/", expectError: true},
		{name: "relative", rawURL: "src.tgz", expectError: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			name, err := ValidateDownloadURL(testCase.rawURL)
			if testCase.expectError {
				if err == nil {
					t.Fatalf("expected error for %s, got name %q", testCase.rawURL, name)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateDownloadURL error: %v", err)
			}
			if name != testCase.expectedName {
				t.Fatalf("expected %q, got %q", testCase.expectedName, name)
			}
		})
	}
}

func TestHTTPDownloaderStreamsIntoArchiveDirectory(t *testing.T) {
	payload := []byte("archive-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get(headerUserAgent) != utils.DefaultUserAgent {
			writer.WriteHeader(http.StatusBadRequest)
			return
		}
		writer.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = writer.Write(payload)
	}))
	defer server.Close()

	core, recorded := observer.New(zap.InfoLevel)
	downloader := NewHTTPDownloader(server.Client(), zap.New(core))
	directory := newTestScratch(t)
	request := newTestJob(t, job.Options{DownloadURL: server.URL + "/pkg/src.tar.gz"})

	artifact, err := downloader.Acquire(context.Background(), request, directory)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	expectedPath := filepath.Join(directory.ArchiveDirectory(), "src.tar.gz")
	if artifact.ArchivePath != expectedPath || !artifact.Downloaded {
		t.Fatalf("unexpected artifact %+v", artifact)
	}
	if artifact.SizeBytes != int64(len(payload)) {
		t.Fatalf("expected %d bytes, got %d", len(payload), artifact.SizeBytes)
	}
	content, readErr := os.ReadFile(expectedPath)
	if readErr != nil || string(content) != string(payload) {
		t.Fatalf("unexpected download content %q (%v)", string(content), readErr)
	}
	if recorded.FilterMessage(progressDoneMessage).Len() != 1 {
		t.Fatalf("expected one completion log entry")
	}
}

func TestHTTPDownloaderKeepsContentEncodedBody(t *testing.T) {
	var compressed bytes.Buffer
	gzipWriter := gzip.NewWriter(&compressed)
	if _, err := gzipWriter.Write([]byte("tar-bytes")); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gzipWriter.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	payload := compressed.Bytes()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get(headerAcceptEncoding) != acceptEncodingValue {
			writer.WriteHeader(http.StatusBadRequest)
			return
		}
		writer.Header().Set("Content-Type", "application/x-tar")
		writer.Header().Set("Content-Encoding", "gzip")
		writer.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = writer.Write(payload)
	}))
	defer server.Close()

	testCases := []struct {
		name   string
		client httpClient
	}{
		{name: "default client", client: nil},
		{name: "caller client", client: server.Client()},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			directory := newTestScratch(t)
			request := newTestJob(t, job.Options{DownloadURL: server.URL + "/dist/src.tar.gz"})
			artifact, err := NewHTTPDownloader(testCase.client, nil).Acquire(context.Background(), request, directory)
			if err != nil {
				t.Fatalf("Acquire error: %v", err)
			}
			content, readErr := os.ReadFile(artifact.ArchivePath)
			if readErr != nil {
				t.Fatalf("read download: %v", readErr)
			}
			if !bytes.Equal(content, payload) {
				t.Fatalf("expected the %d gzip bytes as sent, saved %d bytes", len(payload), len(content))
			}
		})
	}
}

func TestHTTPDownloaderRejectsNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	directory := newTestScratch(t)
	request := newTestJob(t, job.Options{DownloadURL: server.URL + "/missing.tgz"})
	_, err := NewHTTPDownloader(server.Client(), nil).Acquire(context.Background(), request, directory)
	if !errors.Is(err, job.ErrDownload) {
		t.Fatalf("expected download error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(directory.ArchiveDirectory(), "missing.tgz")); !os.IsNotExist(statErr) {
		t.Fatalf("no file expected after failed status")
	}
}

func TestHTTPDownloaderRejectsInvalidURLBeforeConnecting(t *testing.T) {
	request := newTestJob(t, job.Options{DownloadURL: "ftp://example.com/src.tgz"})
	_, err := NewHTTPDownloader(nil, nil).Acquire(context.Background(), request, newTestScratch(t))
	if !errors.Is(err, job.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestHTTPDownloaderStopsOnCancellation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Length", "1048576")
		_, _ = writer.Write([]byte("partial"))
		writer.(http.Flusher).Flush()
		close(started)
		select {
		case <-request.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	request := newTestJob(t, job.Options{DownloadURL: server.URL + "/src.tgz"})
	directory := newTestScratch(t)
	result := make(chan error, 1)
	go func() {
		_, err := NewHTTPDownloader(server.Client(), nil).Acquire(ctx, request, directory)
		result <- err
	}()

	<-started
	cancel()
	select {
	case err := <-result:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context cancellation, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("download did not stop after cancellation")
	}
}

func TestProgressReporterPercentage(t *testing.T) {
	reporter := newProgressReporter(zap.NewNop(), "src.tgz", 200, time.Hour)
	if _, err := reporter.Write(make([]byte, 50)); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if reporter.percentage(reporter.Received()) != 25 {
		t.Fatalf("expected 25 percent, got %d", reporter.percentage(reporter.Received()))
	}
	unknown := newProgressReporter(zap.NewNop(), "src.tgz", -1, 0)
	if unknown.percentage(10) != unknownTotalPercentage {
		t.Fatalf("expected unknown percentage for missing total")
	}
}
