// Package acquire obtains the raw source tree for a job: it either places an
// archive inside the scratch directory or populates the tree directly.
package acquire

import (
	"context"
	"fmt"

	"github.com/temirov/srcwords/internal/job"
	"github.com/temirov/srcwords/internal/scratch"
	"github.com/temirov/srcwords/internal/types"
)

// Acquirer fetches the source for one job into the scratch directory.
type Acquirer interface {
	Acquire(ctx context.Context, request job.Job, directory *scratch.Directory) (types.Artifact, error)
}

// Dispatcher routes a job to the acquirer registered for its mode.
type Dispatcher struct {
	acquirers map[types.Mode]Acquirer
}

// NewDispatcher builds a Dispatcher from a mode-to-acquirer table.
func NewDispatcher(acquirers map[types.Mode]Acquirer) *Dispatcher {
	table := make(map[types.Mode]Acquirer, len(acquirers))
	for mode, acquirer := range acquirers {
		table[mode] = acquirer
	}
	return &Dispatcher{acquirers: table}
}

// Acquire runs the acquirer matching request.Mode().
func (dispatcher *Dispatcher) Acquire(ctx context.Context, request job.Job, directory *scratch.Directory) (types.Artifact, error) {
	acquirer, registered := dispatcher.acquirers[request.Mode()]
	if !registered || acquirer == nil {
		return types.Artifact{}, job.NewError(job.ErrConfig, "", fmt.Errorf("no acquirer registered for mode %q", request.Mode()))
	}
	return acquirer.Acquire(ctx, request, directory)
}
