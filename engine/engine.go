package engine

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cube2222/connplan/connector"
)

// Plan is everything a parallel reader needs to scan a configured source.
type Plan struct {
	Backend connector.Backend
	Mode    connector.Mode
	Shape   connector.EntityShape
	Reader  connector.ReaderKind
	Native  connector.NativeConfiguration
	Splits  []connector.Split
}

// Prepare resolves the native configuration of cfg, initializing it if needed.
func Prepare(cfg connector.Configuration) (*Plan, error) {
	native, err := cfg.NativeConfiguration()
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't get %s native configuration", cfg.Backend())
	}

	return &Plan{
		Backend: cfg.Backend(),
		Mode:    cfg.Mode(),
		Shape:   cfg.EntityShape(),
		Reader:  ReaderFor(cfg),
		Native:  native,
		Splits:  native.Splits(),
	}, nil
}

type readerImplementer interface {
	ReaderImplementation() connector.ReaderKind
}

// ReaderFor returns the reader implementation for cfg.
// Configurations which choose their own reader are asked, the others get the backend default for their entity shape.
func ReaderFor(cfg connector.Configuration) connector.ReaderKind {
	if implementer, ok := cfg.(readerImplementer); ok {
		return implementer.ReaderImplementation()
	}
	return DefaultReader(cfg.Backend(), cfg.EntityShape())
}

func DefaultReader(backend connector.Backend, shape connector.EntityShape) connector.ReaderKind {
	if shape.Kind == connector.Record {
		return connector.ReaderKind(fmt.Sprintf("%s.entity", backend))
	}
	return connector.ReaderKind(fmt.Sprintf("%s.cells", backend))
}

// ReadFunc reads a single split, it may be called concurrently for different splits.
type ReadFunc func(ctx context.Context, plan *Plan, split connector.Split) error

// Run reads all non-empty splits of the plan, at most parallelism at a time.
// The first error cancels the context passed to the remaining reads.
func Run(ctx context.Context, plan *Plan, parallelism int, read ReadFunc) error {
	if parallelism < 1 {
		return errors.Errorf("parallelism must be positive, got %d", parallelism)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, split := range plan.Splits {
		if split.Empty() {
			zap.L().Debug("skipping empty split", zap.String("backend", string(plan.Backend)), zap.Int("split", split.Index))
			continue
		}
		split := split
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := read(ctx, plan, split); err != nil {
				return errors.Wrapf(err, "couldn't read split %d", split.Index)
			}
			return nil
		})
	}
	return g.Wait()
}
