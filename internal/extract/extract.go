package extract

import (
	"bufio"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"go.uber.org/zap"

	"github.com/temirov/srcwords/internal/job"
)

const (
	tarBlockSize        = 512
	tarMagicOffset      = 257
	tarMagic            = "ustar"
	minimumFileMode     = 0o600
	directoryMode       = 0o755
	fallbackPayloadName = "payload"
)

// Extractor unpacks archives into a destination directory.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor constructs an Extractor that reports skipped entries through logger.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract unpacks archivePath into destination, preserving the archive's
// internal layout. The format is chosen from the file extension before any
// byte is read. Decompression or layout failures yield job.ErrExtraction;
// a cancelled context aborts between reads and entries.
func (extractor *Extractor) Extract(ctx context.Context, archivePath string, destination string) error {
	format, formatError := DetectFormat(archivePath)
	if formatError != nil {
		return formatError
	}

	archiveFile, openError := os.Open(archivePath)
	if openError != nil {
		return job.NewError(job.ErrExtraction, archivePath, openError)
	}
	defer archiveFile.Close()

	source := &contextReader{ctx: ctx, reader: archiveFile}
	stream, closeStream, decodeError := decompress(format, source)
	if decodeError != nil {
		return extractionError(ctx, archivePath, decodeError)
	}
	defer closeStream()

	if format == FormatGzip {
		return extractor.extractGzipPayload(ctx, archivePath, stream, destination)
	}
	if unpackError := extractor.unpackTar(ctx, stream, destination); unpackError != nil {
		return extractionError(ctx, archivePath, unpackError)
	}
	return nil
}

// extractGzipPayload unpacks a bare .gz that wraps a tar stream, or writes the
// decompressed payload as a single file otherwise.
func (extractor *Extractor) extractGzipPayload(ctx context.Context, archivePath string, stream io.Reader, destination string) error {
	buffered := bufio.NewReaderSize(stream, tarBlockSize*2)
	header, peekError := buffered.Peek(tarBlockSize)
	if peekError != nil && !errors.Is(peekError, io.EOF) && !errors.Is(peekError, bufio.ErrBufferFull) {
		return extractionError(ctx, archivePath, peekError)
	}
	if isTarHeader(header) {
		if unpackError := extractor.unpackTar(ctx, buffered, destination); unpackError != nil {
			return extractionError(ctx, archivePath, unpackError)
		}
		return nil
	}

	payloadName := stripGzipSuffix(archivePath)
	if payloadName == "" || payloadName == "." {
		payloadName = fallbackPayloadName
	}
	if writeError := writeFile(filepath.Join(destination, payloadName), buffered, minimumFileMode); writeError != nil {
		return extractionError(ctx, archivePath, writeError)
	}
	return nil
}

func isTarHeader(block []byte) bool {
	if len(block) < tarMagicOffset+len(tarMagic) {
		return false
	}
	return string(block[tarMagicOffset:tarMagicOffset+len(tarMagic)]) == tarMagic
}

func decompress(format Format, source io.Reader) (io.Reader, func(), error) {
	noop := func() {}
	switch format {
	case FormatTar:
		return source, noop, nil
	case FormatTarGzip, FormatGzip:
		gzipReader, gzipError := gzip.NewReader(source)
		if gzipError != nil {
			return nil, noop, fmt.Errorf("open gzip stream: %w", gzipError)
		}
		return gzipReader, func() { _ = gzipReader.Close() }, nil
	case FormatTarZstd:
		zstdDecoder, zstdError := zstd.NewReader(source)
		if zstdError != nil {
			return nil, noop, fmt.Errorf("open zstd stream: %w", zstdError)
		}
		return zstdDecoder, zstdDecoder.Close, nil
	case FormatTarLz4:
		return lz4.NewReader(source), noop, nil
	case FormatTarBzip2:
		return bzip2.NewReader(source), noop, nil
	default:
		return nil, noop, fmt.Errorf("no decoder for format %s", format)
	}
}

// extractionError keeps cancellation distinguishable from corrupt input.
func extractionError(ctx context.Context, archivePath string, cause error) error {
	if contextError := ctx.Err(); contextError != nil {
		return contextError
	}
	return job.NewError(job.ErrExtraction, archivePath, cause)
}

type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

func (reader *contextReader) Read(buffer []byte) (int, error) {
	if contextError := reader.ctx.Err(); contextError != nil {
		return 0, contextError
	}
	return reader.reader.Read(buffer)
}
