package acquire

import (
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	progressMessage        = "downloading"
	progressDoneMessage    = "download complete"
	defaultProgressPeriod  = 500 * time.Millisecond
	percentageMultiplier   = 100
	unknownTotalPercentage = -1
)

// progressReporter counts bytes flowing through Write and logs the running
// percentage at most once per interval when the total size is known.
type progressReporter struct {
	logger    *zap.Logger
	name      string
	total     int64
	received  atomic.Int64
	sometimes *rate.Sometimes
}

func newProgressReporter(logger *zap.Logger, name string, total int64, interval time.Duration) *progressReporter {
	if interval <= 0 {
		interval = defaultProgressPeriod
	}
	return &progressReporter{
		logger:    logger,
		name:      name,
		total:     total,
		sometimes: &rate.Sometimes{Interval: interval},
	}
}

func (reporter *progressReporter) Write(chunk []byte) (int, error) {
	received := reporter.received.Add(int64(len(chunk)))
	if reporter.total > 0 {
		reporter.sometimes.Do(func() {
			reporter.logger.Info(progressMessage,
				zap.String("file", reporter.name),
				zap.String("received", humanize.Bytes(uint64(received))),
				zap.String("total", humanize.Bytes(uint64(reporter.total))),
				zap.Int64("percent", reporter.percentage(received)),
			)
		})
	}
	return len(chunk), nil
}

func (reporter *progressReporter) percentage(received int64) int64 {
	if reporter.total <= 0 {
		return unknownTotalPercentage
	}
	if received >= reporter.total {
		return percentageMultiplier
	}
	return received * percentageMultiplier / reporter.total
}

// Received returns the byte count seen so far.
func (reporter *progressReporter) Received() int64 {
	return reporter.received.Load()
}

func (reporter *progressReporter) finish() {
	reporter.logger.Info(progressDoneMessage,
		zap.String("file", reporter.name),
		zap.String("size", humanize.Bytes(uint64(reporter.Received()))),
	)
}
