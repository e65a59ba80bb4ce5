package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/temirov/srcwords/internal/job"
	"github.com/temirov/srcwords/internal/scratch"
	"github.com/temirov/srcwords/internal/types"
)

const (
	// DefaultObjectStoreEndpoint is used when no endpoint is configured.
	DefaultObjectStoreEndpoint = "s3.amazonaws.com"
	schemeS3                   = "s3"
	startingObjectLog          = "fetching object"
)

var (
	errObjectScheme    = errors.New("URL scheme must be s3")
	errObjectBucket    = errors.New("URL has no bucket")
	errObjectKey       = errors.New("URL has no object key")
	errObjectStoreDown = errors.New("object store client unavailable")
)

// ObjectStoreSettings configures the S3-compatible endpoint.
type ObjectStoreSettings struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// objectOpener returns a reader for an object along with its size.
type objectOpener interface {
	Open(ctx context.Context, bucket string, key string) (io.ReadCloser, int64, error)
}

// ObjectStoreDownloader streams an s3://bucket/key object into the scratch archive directory.
type ObjectStoreDownloader struct {
	settings         ObjectStoreSettings
	opener           objectOpener
	progressInterval time.Duration
	logger           *zap.Logger
}

// NewObjectStoreDownloader constructs a downloader. The client is created on
// first use so a bad endpoint only matters when the s3 mode is selected.
func NewObjectStoreDownloader(settings ObjectStoreSettings, logger *zap.Logger) *ObjectStoreDownloader {
	if strings.TrimSpace(settings.Endpoint) == "" {
		settings.Endpoint = DefaultObjectStoreEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObjectStoreDownloader{settings: settings, logger: logger}
}

// WithProgressInterval sets the minimum delay between progress log lines.
func (downloader *ObjectStoreDownloader) WithProgressInterval(interval time.Duration) *ObjectStoreDownloader {
	if interval > 0 {
		downloader.progressInterval = interval
	}
	return downloader
}

// Acquire downloads request.SourceObjectURL() into the archive directory.
func (downloader *ObjectStoreDownloader) Acquire(ctx context.Context, request job.Job, directory *scratch.Directory) (types.Artifact, error) {
	rawURL := request.SourceObjectURL()
	bucket, key, parseError := ParseObjectURL(rawURL)
	if parseError != nil {
		return types.Artifact{}, job.NewError(job.ErrInvalidInput, rawURL, parseError)
	}
	opener, openerError := downloader.resolveOpener()
	if openerError != nil {
		return types.Artifact{}, job.NewError(job.ErrDownload, rawURL, openerError)
	}

	downloader.logger.Info(startingObjectLog, zap.String("bucket", bucket), zap.String("key", key))
	object, size, openError := opener.Open(ctx, bucket, key)
	if openError != nil {
		return types.Artifact{}, downloadFailure(ctx, rawURL, openError)
	}
	defer object.Close()

	fileName := path.Base(key)
	destination := filepath.Join(directory.ArchiveDirectory(), fileName)
	reporter := newProgressReporter(downloader.logger, fileName, size, downloader.progressInterval)
	if streamError := streamToFile(object, destination, reporter); streamError != nil {
		return types.Artifact{}, downloadFailure(ctx, rawURL, streamError)
	}
	reporter.finish()
	return types.Artifact{ArchivePath: destination, Downloaded: true, SizeBytes: reporter.Received()}, nil
}

func (downloader *ObjectStoreDownloader) resolveOpener() (objectOpener, error) {
	if downloader.opener != nil {
		return downloader.opener, nil
	}
	client, clientError := minio.New(downloader.settings.Endpoint, &minio.Options{
		Creds:  downloader.credentials(),
		Secure: downloader.settings.UseSSL,
		Region: downloader.settings.Region,
	})
	if clientError != nil {
		return nil, fmt.Errorf("%w: %v", errObjectStoreDown, clientError)
	}
	downloader.opener = minioOpener{client: client}
	return downloader.opener, nil
}

func (downloader *ObjectStoreDownloader) credentials() *credentials.Credentials {
	if downloader.settings.AccessKey != "" {
		return credentials.NewStaticV4(downloader.settings.AccessKey, downloader.settings.SecretKey, "")
	}
	return credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.EnvMinio{},
	})
}

// ParseObjectURL splits s3://bucket/key into its bucket and key.
func ParseObjectURL(rawURL string) (string, string, error) {
	parsed, parseError := url.Parse(rawURL)
	if parseError != nil {
		return "", "", parseError
	}
	if strings.ToLower(parsed.Scheme) != schemeS3 {
		return "", "", errObjectScheme
	}
	if parsed.Host == "" {
		return "", "", errObjectBucket
	}
	key := strings.TrimPrefix(parsed.Path, "/")
	if _, segmentError := finalSegment(parsed.Path); key == "" || segmentError != nil {
		return "", "", errObjectKey
	}
	return parsed.Host, key, nil
}

type minioOpener struct {
	client *minio.Client
}

func (opener minioOpener) Open(ctx context.Context, bucket string, key string) (io.ReadCloser, int64, error) {
	object, getError := opener.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if getError != nil {
		return nil, 0, getError
	}
	info, statError := object.Stat()
	if statError != nil {
		_ = object.Close()
		return nil, 0, statError
	}
	return object, info.Size, nil
}

var _ Acquirer = (*ObjectStoreDownloader)(nil)
