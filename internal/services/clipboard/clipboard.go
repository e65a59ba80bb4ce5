// Package clipboard copies a finished word list to the system clipboard.
package clipboard

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrUnavailable reports that no clipboard utility is installed.
var ErrUnavailable = errors.New("system clipboard is unavailable")

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct {
	unsupported bool
	writeAll    func(text string) error
}

// NewService constructs a Service bound to the system clipboard.
func NewService() *Service {
	return &Service{unsupported: clipboard.Unsupported, writeAll: clipboard.WriteAll}
}

// Copy writes text to the system clipboard. Empty text is a no-op.
func (service *Service) Copy(text string) error {
	if text == "" {
		return nil
	}
	if service.unsupported {
		return ErrUnavailable
	}
	return service.writeAll(text)
}

var _ Copier = (*Service)(nil)
