// Package generator writes synthetic construction-site inputs for the merger:
// one site record per id plus contacts, materials and equipment, each in its
// own sorted JSON array file.
package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"sitemerge/internal/jsonstream"
	"sitemerge/internal/merge"
	"sitemerge/internal/models"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
)

// Options control what is generated.
type Options struct {
	StartID      int
	Count        int
	MaxMaterials int
	MaxEquipment int
	// Seed makes output reproducible; 0 picks a random seed.
	Seed  uint64
	Files merge.Files
}

// DefaultOptions produces ids 1000-1999 with up to six
// materials and six equipment draws per site.
func DefaultOptions() Options {
	return Options{
		StartID:      1000,
		Count:        1000,
		MaxMaterials: 6,
		MaxEquipment: 6,
		Files:        merge.DefaultFiles(),
	}
}

// Summary counts what was written.
type Summary struct {
	Dir       string
	Sites     int
	Contacts  int
	Materials int
	Equipment int
}

// Generator produces site data.
type Generator struct {
	faker  *gofakeit.Faker
	opts   Options
	logger *zap.Logger
}

// New returns a Generator. A nil logger disables logging.
func New(opts Options, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		faker:  gofakeit.New(opts.Seed),
		opts:   opts,
		logger: logger,
	}
}

// TempDir creates a fresh output directory for callers that do not name one.
func TempDir() (string, error) {
	return os.MkdirTemp("", "sitemerge-gen")
}

type writers struct {
	records   *jsonstream.Writer[models.Record]
	contacts  *jsonstream.Writer[models.Entry[models.PointOfContact]]
	materials *jsonstream.Writer[models.Entry[string]]
	equipment *jsonstream.Writer[models.Entry[models.EquipmentSet]]
}

func (w *writers) close() error {
	var errs []error
	if w.records != nil {
		errs = append(errs, w.records.Close())
	}
	if w.contacts != nil {
		errs = append(errs, w.contacts.Close())
	}
	if w.materials != nil {
		errs = append(errs, w.materials.Close())
	}
	if w.equipment != nil {
		errs = append(errs, w.equipment.Close())
	}
	return errors.Join(errs...)
}

func (g *Generator) open(dir string) (*writers, error) {
	w := &writers{}
	var err error
	if w.records, err = jsonstream.Create[models.Record](filepath.Join(dir, g.opts.Files.Records)); err != nil {
		return nil, err
	}
	if w.contacts, err = jsonstream.Create[models.Entry[models.PointOfContact]](filepath.Join(dir, g.opts.Files.Contacts)); err != nil {
		w.close()
		return nil, err
	}
	if w.materials, err = jsonstream.Create[models.Entry[string]](filepath.Join(dir, g.opts.Files.Materials)); err != nil {
		w.close()
		return nil, err
	}
	if w.equipment, err = jsonstream.Create[models.Entry[models.EquipmentSet]](filepath.Join(dir, g.opts.Files.Equipment)); err != nil {
		w.close()
		return nil, err
	}
	return w, nil
}

// WriteDir writes the four input files into dir, creating it if needed.
func (g *Generator) WriteDir(ctx context.Context, dir string) (Summary, error) {
	sum := Summary{Dir: dir}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sum, fmt.Errorf("failed to create output directory: %w", err)
	}

	w, err := g.open(dir)
	if err != nil {
		return sum, err
	}

	err = g.write(ctx, w)
	sum.Sites = w.records.Count()
	sum.Contacts = w.contacts.Count()
	sum.Materials = w.materials.Count()
	sum.Equipment = w.equipment.Count()
	if cerr := w.close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to finish output files: %w", cerr)
	}
	if err != nil {
		g.logger.Warn("failed to write", zap.String("dir", dir), zap.Error(err))
		return sum, err
	}

	g.logger.Info("generated site data",
		zap.String("dir", dir),
		zap.Int("sites", sum.Sites),
		zap.Int("contacts", sum.Contacts),
		zap.Int("materials", sum.Materials),
		zap.Int("equipment", sum.Equipment))
	return sum, nil
}

func (g *Generator) write(ctx context.Context, w *writers) error {
	end := g.opts.StartID + g.opts.Count
	for id := g.opts.StartID; id < end; id++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := w.records.Write(g.Site(id)); err != nil {
			return err
		}

		if err := w.contacts.Write(models.NewEntry(id, g.Contact())); err != nil {
			return err
		}

		for _, m := range g.Materials() {
			if err := w.materials.Write(models.NewEntry(id, m)); err != nil {
				return err
			}
		}

		if equip := g.Equipment(); !equip.Empty() {
			if err := w.equipment.Write(models.NewEntry(id, equip)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Site returns a record carrying only the required fields.
func (g *Generator) Site(id int) models.Record {
	return models.Record{
		ID:       id,
		SiteName: g.faker.Company(),
		Address:  g.faker.Address().Address,
	}
}

// Contact returns a random point of contact.
func (g *Generator) Contact() models.PointOfContact {
	return models.PointOfContact{
		Name:        g.faker.Name(),
		Title:       g.faker.RandomString(constructionRoles),
		PhoneNumber: g.faker.PhoneFormatted(),
	}
}

// Materials returns between zero and MaxMaterials materials. Repeats are
// allowed; the merger counts them.
func (g *Generator) Materials() []string {
	n := g.faker.Number(0, g.opts.MaxMaterials)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.faker.RandomString(constructionMaterials))
	}
	return out
}

// Equipment draws up to MaxEquipment machines into a set, so repeats collapse.
func (g *Generator) Equipment() models.EquipmentSet {
	n := g.faker.Number(0, g.opts.MaxEquipment)
	var set models.EquipmentSet
	for i := 0; i < n; i++ {
		e, err := models.ParseEquipment(g.faker.RandomString(heavyEquipment))
		if err != nil {
			// vocabulary and enum are maintained together
			panic(err)
		}
		set = set.With(e)
	}
	return set
}
