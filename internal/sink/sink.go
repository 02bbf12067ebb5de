// Package sink holds the destinations merged records are written to.
package sink

import (
	"context"
	"errors"

	"sitemerge/internal/jsonstream"
	"sitemerge/internal/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink receives merged records in key order.
type Sink interface {
	Write(ctx context.Context, r models.Record) error
	Close() error
}

// LogSink logs one structured line per record.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink logs at info level through logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(_ context.Context, r models.Record) error {
	fields := []zap.Field{
		zap.Int("id", r.ID),
		zap.String("site_name", r.SiteName),
		zap.String("address", r.Address),
		zap.Any("materials", r.RequiredMaterials),
		zap.Stringer("equipment", r.RequiredEquipment),
	}
	if r.Contact != nil {
		fields = append(fields, zap.Object("contact", contactField(*r.Contact)))
	}
	s.logger.Info("merged record", fields...)
	return nil
}

type contactField models.PointOfContact

func (c contactField) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("name", c.Name)
	enc.AddString("title", c.Title)
	enc.AddString("phone_number", c.PhoneNumber)
	return nil
}

func (s *LogSink) Close() error {
	return nil
}

// JSONSink writes records as a pretty-printed JSON array file.
type JSONSink struct {
	w *jsonstream.Writer[models.Record]
}

// NewJSONSink creates (or truncates) the file at path.
func NewJSONSink(path string) (*JSONSink, error) {
	w, err := jsonstream.Create[models.Record](path)
	if err != nil {
		return nil, err
	}
	return &JSONSink{w: w}, nil
}

func (s *JSONSink) Write(_ context.Context, r models.Record) error {
	return s.w.Write(r)
}

// Close terminates the array and closes the file.
func (s *JSONSink) Close() error {
	return s.w.Close()
}

// Multi fans each record out to every sink in order.
type Multi []Sink

func (m Multi) Write(ctx context.Context, r models.Record) error {
	for _, s := range m {
		if err := s.Write(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every record.
type Discard struct{}

func (Discard) Write(context.Context, models.Record) error { return nil }
func (Discard) Close() error { return nil }
