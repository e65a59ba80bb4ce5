package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/srcwords/internal/job"
	"github.com/temirov/srcwords/internal/scratch"
	"github.com/temirov/srcwords/internal/types"
	"github.com/temirov/srcwords/internal/utils"
)

const (
	defaultDownloadTimeout = 0
	headerUserAgent        = "User-Agent"
	headerAccept           = "Accept"
	headerAcceptLanguage   = "Accept-Language"
	headerAcceptCharset    = "Accept-Charset"
	headerAcceptEncoding   = "Accept-Encoding"
	acceptValue            = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguageValue    = "en-US,en;q=0.8"
	acceptCharsetValue     = "ISO-8859-1,utf-8;q=0.7,*;q=0.3"
	acceptEncodingValue    = "identity"
	schemeHTTP             = "http"
	schemeHTTPS            = "https"
	downloadFilePerms      = 0o600
	startingDownloadLog    = "starting download"
)

var (
	errUnsupportedScheme = errors.New("URL scheme must be http or https")
	errMissingHost       = errors.New("URL has no host")
	errMissingFileName   = errors.New("URL path has no final segment to name the download")
)

type httpClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// HTTPDownloader streams a remote archive into the scratch archive directory.
type HTTPDownloader struct {
	client           httpClient
	userAgent        string
	timeout          time.Duration
	progressInterval time.Duration
	logger           *zap.Logger
}

// NewHTTPDownloader constructs a downloader. A nil client uses an http.Client
// with no overall timeout, since archives can be large, and without transparent
// decompression so a gzip tarball is saved as the server sent it.
func NewHTTPDownloader(client httpClient, logger *zap.Logger) *HTTPDownloader {
	if client == nil {
		client = &http.Client{
			Timeout: defaultDownloadTimeout,
			Transport: &http.Transport{
				Proxy:              http.ProxyFromEnvironment,
				DisableCompression: true,
			},
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPDownloader{client: client, userAgent: utils.DefaultUserAgent, logger: logger}
}

// WithUserAgent overrides the User-Agent header.
func (downloader *HTTPDownloader) WithUserAgent(agent string) *HTTPDownloader {
	if strings.TrimSpace(agent) != "" {
		downloader.userAgent = agent
	}
	return downloader
}

// WithTimeout bounds the whole transfer; zero leaves it unbounded.
func (downloader *HTTPDownloader) WithTimeout(duration time.Duration) *HTTPDownloader {
	if duration > 0 {
		downloader.timeout = duration
	}
	return downloader
}

// WithProgressInterval sets the minimum delay between progress log lines.
func (downloader *HTTPDownloader) WithProgressInterval(interval time.Duration) *HTTPDownloader {
	if interval > 0 {
		downloader.progressInterval = interval
	}
	return downloader
}

// Acquire downloads request.SourceURL() into the archive directory, named after
// the URL's final path segment.
func (downloader *HTTPDownloader) Acquire(ctx context.Context, request job.Job, directory *scratch.Directory) (types.Artifact, error) {
	rawURL := request.SourceURL()
	fileName, validationError := ValidateDownloadURL(rawURL)
	if validationError != nil {
		return types.Artifact{}, job.NewError(job.ErrInvalidInput, rawURL, validationError)
	}

	if downloader.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, downloader.timeout)
		defer cancel()
	}

	httpRequest, requestError := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if requestError != nil {
		return types.Artifact{}, job.NewError(job.ErrInvalidInput, rawURL, requestError)
	}
	httpRequest.Header.Set(headerUserAgent, downloader.userAgent)
	httpRequest.Header.Set(headerAccept, acceptValue)
	httpRequest.Header.Set(headerAcceptLanguage, acceptLanguageValue)
	httpRequest.Header.Set(headerAcceptCharset, acceptCharsetValue)
	// An explicit encoding also stops a caller's client from decoding the body.
	httpRequest.Header.Set(headerAcceptEncoding, acceptEncodingValue)

	downloader.logger.Info(startingDownloadLog, zap.String("url", request.RedactedSource()), zap.String("file", fileName))
	response, responseError := downloader.client.Do(httpRequest)
	if responseError != nil {
		return types.Artifact{}, downloadFailure(ctx, request.RedactedSource(), responseError)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return types.Artifact{}, job.Errorf(job.ErrDownload, request.RedactedSource(), "unexpected status %s", response.Status)
	}

	destination := filepath.Join(directory.ArchiveDirectory(), fileName)
	reporter := newProgressReporter(downloader.logger, fileName, response.ContentLength, downloader.progressInterval)
	if streamError := streamToFile(response.Body, destination, reporter); streamError != nil {
		return types.Artifact{}, downloadFailure(ctx, request.RedactedSource(), streamError)
	}
	reporter.finish()

	return types.Artifact{ArchivePath: destination, Downloaded: true, SizeBytes: reporter.Received()}, nil
}

// ValidateDownloadURL checks that rawURL is an absolute http(s) URL whose path
// ends in a file name, and returns that name.
func ValidateDownloadURL(rawURL string) (string, error) {
	parsed, parseError := url.Parse(rawURL)
	if parseError != nil {
		return "", parseError
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != schemeHTTP && scheme != schemeHTTPS {
		return "", errUnsupportedScheme
	}
	if parsed.Host == "" {
		return "", errMissingHost
	}
	return finalSegment(parsed.Path)
}

func finalSegment(urlPath string) (string, error) {
	if urlPath == "" || strings.HasSuffix(urlPath, "/") {
		return "", errMissingFileName
	}
	name := path.Base(urlPath)
	if name == "." || name == ".." || name == "/" || strings.ContainsRune(name, '\\') {
		return "", errMissingFileName
	}
	return name, nil
}

// streamToFile copies source into a newly created file, feeding every chunk to reporter.
func streamToFile(source io.Reader, destination string, reporter io.Writer) error {
	file, createError := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_EXCL, downloadFilePerms)
	if createError != nil {
		return fmt.Errorf("create %s: %w", destination, createError)
	}
	if _, copyError := io.Copy(file, io.TeeReader(source, reporter)); copyError != nil {
		_ = file.Close()
		return copyError
	}
	return file.Close()
}

// downloadFailure reports cancellation as-is and everything else as job.ErrDownload.
func downloadFailure(ctx context.Context, subject string, cause error) error {
	if contextError := ctx.Err(); contextError != nil && !errors.Is(contextError, context.DeadlineExceeded) {
		return contextError
	}
	return job.NewError(job.ErrDownload, subject, cause)
}

var _ Acquirer = (*HTTPDownloader)(nil)
