package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Usage is one host sample, in percent.
type Usage struct {
	CPUPercent    float64
	MemoryPercent float64
}

// Provider reports instantaneous host telemetry.
type Provider interface {
	CPUPercent(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (active, total uint64, err error)
}

// ErrorAppender receives ERROR: lines.
type ErrorAppender interface {
	Errorf(format string, args ...any)
}

type Sampler struct {
	provider Provider
	logger   *slog.Logger
	lines    ErrorAppender
}

func NewSampler(provider Provider, logger *slog.Logger, lines ErrorAppender) *Sampler {
	return &Sampler{
		provider: provider,
		logger:   logger,
		lines:    lines,
	}
}

// Sample queries CPU and memory concurrently. Memory usage is active memory
// over total memory. Failures are logged and returned.
func (s *Sampler) Sample(ctx context.Context) (Usage, error) {
	var (
		usage         Usage
		active, total uint64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cpu, err := s.provider.CPUPercent(gctx)
		if err != nil {
			return fmt.Errorf("cpu: %w", err)
		}
		usage.CPUPercent = cpu
		return nil
	})
	g.Go(func() error {
		var err error
		active, total, err = s.provider.Memory(gctx)
		if err != nil {
			return fmt.Errorf("memory: %w", err)
		}
		if total == 0 {
			return errors.New("memory: total reported as zero")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.lines.Errorf("fetching server stats: %v", err)
		s.logger.Error("Failed to sample server stats", slog.Any("err", err))
		return Usage{}, err
	}

	usage.MemoryPercent = float64(active) / float64(total) * 100
	return usage, nil
}
