package merge

import (
	"errors"
	"io"

	"sitemerge/internal/models"
)

// materialGroups folds runs of consecutive material entries that share a key
// into one entry of material counts.
type materialGroups struct {
	src     Iterator[models.Entry[string]]
	pending *models.Entry[string]
	done    bool
}

func (g *materialGroups) Next() (models.Entry[map[string]int64], error) {
	var zero models.Entry[map[string]int64]
	if g.done && g.pending == nil {
		return zero, io.EOF
	}

	var first models.Entry[string]
	if g.pending != nil {
		first = *g.pending
		g.pending = nil
	} else {
		e, err := g.src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				g.done = true
			}
			return zero, err
		}
		first = e
	}

	group := models.Entry[map[string]int64]{
		Key:   first.Key,
		Value: map[string]int64{first.Value: 1},
	}
	for {
		e, err := g.src.Next()
		if errors.Is(err, io.EOF) {
			g.done = true
			return group, nil
		}
		if err != nil {
			return zero, err
		}
		if e.Key != group.Key {
			g.pending = &e
			return group, nil
		}
		group.Value[e.Value]++
	}
}
