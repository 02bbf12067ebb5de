package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sitemerge/internal/merge"
	"sitemerge/internal/models"

	"go.uber.org/zap"
)

// Run collects the records of one merge. It implements the record sink
// interface, so it can be handed straight to the merger.
type Run struct {
	store    *Store
	id       string
	tx       *sql.Tx
	written  int
	finished bool
}

// ID is the run's UUID.
func (r *Run) ID() string {
	return r.id
}

// Write stores one merged record.
func (r *Run) Write(ctx context.Context, rec models.Record) error {
	if r.finished {
		return errors.New("store: write to finished run")
	}

	var name, title, phone sql.NullString
	if c := rec.Contact; c != nil {
		name = sql.NullString{String: c.Name, Valid: true}
		title = sql.NullString{String: c.Title, Valid: true}
		phone = sql.NullString{String: c.PhoneNumber, Valid: true}
	}
	if _, err := r.tx.ExecContext(ctx,
		`INSERT INTO sites (run_id, id, site_name, address, contact_name, contact_title, contact_phone)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.id, rec.ID, rec.SiteName, rec.Address, name, title, phone,
	); err != nil {
		return fmt.Errorf("failed to store site %d: %w", rec.ID, err)
	}

	for material, count := range rec.RequiredMaterials {
		if _, err := r.tx.ExecContext(ctx,
			`INSERT INTO site_materials (run_id, site_id, material, count) VALUES (?, ?, ?, ?)`,
			r.id, rec.ID, material, count,
		); err != nil {
			return fmt.Errorf("failed to store materials for site %d: %w", rec.ID, err)
		}
	}

	for _, e := range rec.RequiredEquipment.Items() {
		if _, err := r.tx.ExecContext(ctx,
			`INSERT INTO site_equipment (run_id, site_id, equipment) VALUES (?, ?, ?)`,
			r.id, rec.ID, e.String(),
		); err != nil {
			return fmt.Errorf("failed to store equipment for site %d: %w", rec.ID, err)
		}
	}

	r.written++
	return nil
}

// Written is the number of records stored so far.
func (r *Run) Written() int {
	return r.written
}

// Close is a no-op; a run ends with Finish.
func (r *Run) Close() error {
	return nil
}

// Finish commits the run's records when runErr is nil, otherwise discards
// them, and records the outcome on the run row.
func (r *Run) Finish(ctx context.Context, stats merge.Stats, runErr error) error {
	if r.finished {
		return nil
	}
	r.finished = true

	status := StatusComplete
	msg := ""
	var commitErr error
	if runErr != nil {
		status = StatusFailed
		msg = runErr.Error()
		if err := r.tx.Rollback(); err != nil {
			r.store.logger.Warn("rollback failed", zap.String("run_id", r.id), zap.Error(err))
		}
	} else if err := r.tx.Commit(); err != nil {
		status = StatusFailed
		msg = err.Error()
		commitErr = fmt.Errorf("failed to commit run %s: %w", r.id, err)
	}

	// Use a fresh context so a cancelled run still gets its final status.
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := r.store.db.ExecContext(uctx,
		`UPDATE runs SET finished_at = ?, status = ?, records = ?, orphans = ?, error = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), status, stats.Records, stats.Orphans, msg, r.id,
	); err != nil {
		return fmt.Errorf("failed to finish run %s: %w", r.id, err)
	}

	r.store.logger.Info("run finished",
		zap.String("run_id", r.id),
		zap.String("status", status),
		zap.Int("records", stats.Records),
		zap.Int("orphans", stats.Orphans))
	return commitErr
}

// LoadRecords returns the records of a run in ascending id order.
func (s *Store) LoadRecords(ctx context.Context, runID string) ([]models.Record, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, site_name, address, contact_name, contact_title, contact_phone
		 FROM sites WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sites: %w", err)
	}
	var (
		records []models.Record
		index   = map[int]int{}
	)
	for rows.Next() {
		var (
			rec                models.Record
			name, title, phone sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.SiteName, &rec.Address, &name, &title, &phone); err != nil {
			rows.Close()
			return nil, err
		}
		if name.Valid {
			rec.Contact = &models.PointOfContact{Name: name.String, Title: title.String, PhoneNumber: phone.String}
		}
		rec.RequiredMaterials = map[string]int64{}
		index[rec.ID] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	mrows, err := s.db.QueryContext(ctx,
		`SELECT site_id, material, count FROM site_materials WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load materials: %w", err)
	}
	for mrows.Next() {
		var (
			id       int
			material string
			count    int64
		)
		if err := mrows.Scan(&id, &material, &count); err != nil {
			mrows.Close()
			return nil, err
		}
		if i, ok := index[id]; ok {
			records[i].RequiredMaterials[material] = count
		}
	}
	if err := mrows.Err(); err != nil {
		mrows.Close()
		return nil, err
	}
	mrows.Close()

	erows, err := s.db.QueryContext(ctx,
		`SELECT site_id, equipment FROM site_equipment WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load equipment: %w", err)
	}
	defer erows.Close()
	for erows.Next() {
		var (
			id   int
			name string
		)
		if err := erows.Scan(&id, &name); err != nil {
			return nil, err
		}
		e, err := models.ParseEquipment(name)
		if err != nil {
			return nil, fmt.Errorf("site %d: %w", id, err)
		}
		if i, ok := index[id]; ok {
			records[i].RequiredEquipment = records[i].RequiredEquipment.With(e)
		}
	}
	return records, erows.Err()
}
