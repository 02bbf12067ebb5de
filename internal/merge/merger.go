// Package merge joins the four sorted site inputs into one record per site.
//
// Every input is decoded on its own goroutine and turned into keyed markers.
// The consumer repeatedly takes the smallest key across the input heads
// (ties go to the lower Source), folds runs of equal keys into a
// models.Builder and emits the built record when the key changes.
//
// Usage:
//
//	m := merge.New(logger, merge.Options{})
//	stats, err := m.Run(ctx, inputs, func(ctx context.Context, r models.Record) error {
//		return sink.Write(ctx, r)
//	})
package merge

import (
	"context"
	"errors"
	"fmt"
	"io"

	"sitemerge/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnsorted is returned when an input's keys decrease.
	ErrUnsorted = errors.New("input is not sorted by key")
	// ErrOrphan is returned in strict mode for a key with no site record.
	ErrOrphan = errors.New("no site record for key")
)

// DefaultBuffer is the per-input channel capacity.
const DefaultBuffer = 32

// Iterator yields values until it returns io.EOF.
type Iterator[T any] interface {
	Next() (T, error)
}

// Inputs are the four sources. A nil iterator is treated as empty.
type Inputs struct {
	Records   Iterator[models.Record]
	Contacts  Iterator[models.Entry[models.PointOfContact]]
	Equipment Iterator[models.Entry[models.EquipmentSet]]
	Materials Iterator[models.Entry[string]]
}

// EmitFunc receives merged records in ascending key order.
type EmitFunc func(ctx context.Context, r models.Record) error

// Options tune a Merger.
type Options struct {
	// Strict fails the run on orphan keys instead of dropping them.
	Strict bool
	// Buffer is the per-input channel capacity (DefaultBuffer if <= 0).
	Buffer int
}

// Stats summarises a run.
type Stats struct {
	Records int
	Orphans int
	Markers int
	Noops   int
}

// Merger runs merges. It holds no per-run state and may be reused.
type Merger struct {
	logger *zap.Logger
	opts   Options
}

// New returns a Merger. A nil logger disables logging.
func New(logger *zap.Logger, opts Options) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	return &Merger{logger: logger, opts: opts}
}

type item struct {
	m   Marker
	err error
}

// Run merges in and calls emit for every complete site. It returns after all
// input goroutines have exited.
func (m *Merger) Run(ctx context.Context, in Inputs, emit EmitFunc) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	g, gctx := errgroup.WithContext(ctx)

	chans := make([]chan item, numSources)
	for i := range chans {
		chans[i] = make(chan item, m.opts.Buffer)
	}

	g.Go(func() error {
		var records Iterator[models.Record]
		if in.Records != nil {
			records = validRecords{src: in.Records}
		}
		return produce(gctx, SourceRecords, records, RecordMarker, chans[SourceRecords])
	})
	g.Go(func() error {
		return produce(gctx, SourceContacts, in.Contacts, ContactMarker, chans[SourceContacts])
	})
	g.Go(func() error {
		return produce(gctx, SourceEquipment, in.Equipment, EquipmentMarker, chans[SourceEquipment])
	})
	g.Go(func() error {
		var groups Iterator[models.Entry[map[string]int64]]
		if in.Materials != nil {
			groups = &materialGroups{src: in.Materials}
		}
		return produce(gctx, SourceMaterials, groups, MaterialsMarker, chans[SourceMaterials])
	})

	var stats Stats
	g.Go(func() error {
		return m.consume(gctx, chans, emit, &stats)
	})

	err := g.Wait()
	if err != nil {
		m.logger.Warn("merge failed", zap.Error(err), zap.Int("records", stats.Records))
		return stats, err
	}
	m.logger.Info("merge complete",
		zap.Int("records", stats.Records),
		zap.Int("orphans", stats.Orphans),
		zap.Int("markers", stats.Markers),
		zap.Int("noops", stats.Noops))
	return stats, nil
}

// Collect runs a merge and returns all records.
func (m *Merger) Collect(ctx context.Context, in Inputs) ([]models.Record, Stats, error) {
	var out []models.Record
	stats, err := m.Run(ctx, in, func(_ context.Context, r models.Record) error {
		out = append(out, r)
		return nil
	})
	return out, stats, err
}

// validRecords fails on a site record missing a required field, so that it is
// never mistaken for an absent one.
type validRecords struct {
	src Iterator[models.Record]
}

func (v validRecords) Next() (models.Record, error) {
	r, err := v.src.Next()
	if err != nil {
		return r, err
	}
	if err := r.Validate(); err != nil {
		return r, err
	}
	return r, nil
}

// produce drains it into out, checking that keys never decrease. Failures
// are delivered in-band so the consumer never mistakes them for end of input.
func produce[T any](ctx context.Context, src Source, it Iterator[T], toMarker func(T) Marker, out chan<- item) error {
	defer close(out)
	if it == nil {
		return nil
	}

	send := func(i item) error {
		select {
		case out <- i:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	fail := func(err error) error {
		if serr := send(item{err: err}); serr != nil {
			return serr
		}
		return err
	}

	first := true
	last := 0
	for {
		v, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fail(fmt.Errorf("%s: %w", src, err))
		}
		mk := toMarker(v)
		if !first && mk.Key() < last {
			return fail(fmt.Errorf("%s: %w: key %d follows %d", src, ErrUnsorted, mk.Key(), last))
		}
		first = false
		last = mk.Key()
		if err := send(item{m: mk}); err != nil {
			return err
		}
	}
}

func (m *Merger) consume(ctx context.Context, chans []chan item, emit EmitFunc, stats *Stats) error {
	heads := make([]Marker, len(chans))
	open := make([]bool, len(chans))

	pull := func(i int) error {
		select {
		case it, ok := <-chans[i]:
			if !ok {
				heads[i] = nil
				open[i] = false
				return nil
			}
			if it.err != nil {
				return it.err
			}
			heads[i] = it.m
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for i := range chans {
		open[i] = true
		if err := pull(i); err != nil {
			return err
		}
	}

	var (
		cur    *models.Builder
		curKey int
	)
	flush := func() error {
		if cur == nil {
			return nil
		}
		b := cur
		cur = nil
		if !b.HasRecord() {
			if m.opts.Strict {
				return fmt.Errorf("%w: %d", ErrOrphan, curKey)
			}
			stats.Orphans++
			m.logger.Warn("dropping key without site record", zap.Int("key", curKey))
			return nil
		}
		rec, err := b.Build()
		if err != nil {
			return err
		}
		if err := emit(ctx, rec); err != nil {
			return err
		}
		stats.Records++
		return nil
	}

	for {
		next := -1
		for i, h := range heads {
			if !open[i] || h == nil {
				continue
			}
			if next < 0 || h.Key() < heads[next].Key() {
				next = i
			}
		}
		if next < 0 {
			break
		}

		mk := heads[next]
		if cur != nil && mk.Key() != curKey {
			if err := flush(); err != nil {
				return err
			}
		}
		if cur == nil {
			cur = models.NewBuilder()
			curKey = mk.Key()
		}
		mk.Apply(cur)
		stats.Markers++
		if mk.Noop() {
			stats.Noops++
		}

		if err := pull(next); err != nil {
			return err
		}
	}
	return flush()
}
