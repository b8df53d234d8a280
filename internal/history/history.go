// Package history is the screenshot history store: it ties the blob store,
// the metadata catalog and usage accounting together and enforces the
// storage budget after every save.
package history

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pders01/shotvault/internal/blob"
	"github.com/pders01/shotvault/internal/catalog"
	"github.com/pders01/shotvault/internal/models"
	"github.com/pders01/shotvault/internal/usage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	// DefaultBudgetBytes is the storage budget used when none is configured
	DefaultBudgetBytes int64 = 500 * 1024 * 1024

	// DefaultLimit is the number of items List returns when no limit is given
	DefaultLimit = 20
)

// Options configures a Service
type Options struct {
	// Root is the storage root holding item directories and the catalog
	Root string

	// Fs defaults to the OS filesystem
	Fs afero.Fs

	// Catalog defaults to the JSON document at <Root>/index.json
	Catalog catalog.Catalog

	// BudgetBytes defaults to DefaultBudgetBytes
	BudgetBytes int64

	Now   func() time.Time
	NewID func() string
}

// Service is the handle every screenshot operation goes through
type Service struct {
	fs      afero.Fs
	blobs   *blob.Store
	catalog catalog.Catalog
	budget  atomic.Int64
	now     func() time.Time
	newID   func() string

	// enforceMu serializes budget enforcement and reconciliation
	enforceMu sync.Mutex
}

// New opens the store at opts.Root
func New(opts Options) (*Service, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.BudgetBytes <= 0 {
		opts.BudgetBytes = DefaultBudgetBytes
	}

	blobs, err := blob.NewStore(opts.Fs, opts.Root)
	if err != nil {
		return nil, err
	}

	cat := opts.Catalog
	if cat == nil {
		cat, err = catalog.Open(catalog.BackendJSON, opts.Fs, opts.Root)
		if err != nil {
			return nil, err
		}
	}

	s := &Service{
		fs:      opts.Fs,
		blobs:   blobs,
		catalog: cat,
		now:     opts.Now,
		newID:   opts.NewID,
	}
	s.budget.Store(opts.BudgetBytes)
	return s, nil
}

// Root returns the storage root
func (s *Service) Root() string {
	return s.blobs.Root()
}

// Budget returns the current storage budget in bytes
func (s *Service) Budget() int64 {
	return s.budget.Load()
}

// SetBudget changes the storage budget. Non-positive values are ignored.
func (s *Service) SetBudget(n int64) {
	if n > 0 {
		s.budget.Store(n)
	}
}

// Close releases the catalog
func (s *Service) Close() error {
	return s.catalog.Close()
}

// SaveRequest describes the inputs produced by the capture and export
// steps. AnnotatedPath and TicketID are optional.
type SaveRequest struct {
	OriginalPath  string
	AnnotatedPath string
	ThumbnailPath string
	Annotations   []byte
	TicketID      string
}

// Save persists a new item and returns its id. Either the item directory
// and its catalog entry both exist afterwards, or neither does.
func (s *Service) Save(ctx context.Context, req SaveRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.OriginalPath == "" || req.ThumbnailPath == "" {
		return "", models.ValidationError("save screenshot", fmt.Errorf("original and thumbnail paths are required"))
	}

	count, err := CountAnnotations(req.Annotations)
	if err != nil {
		return "", err
	}

	id := s.newID()
	dir, err := s.blobs.Create(id)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := dir.Abort(); err != nil {
			log.Warn().Err(err).Str("id", id).Msg("Failed to discard staged screenshot")
		}
	}()

	item := models.Screenshot{
		ID:              id,
		TicketID:        models.StringPtr(req.TicketID),
		AnnotationCount: count,
	}

	if item.OriginalPath, err = dir.StoreFile(blob.RoleOriginal, req.OriginalPath); err != nil {
		return "", err
	}
	if req.AnnotatedPath != "" {
		annotated, err := dir.StoreFile(blob.RoleAnnotated, req.AnnotatedPath)
		if err != nil {
			return "", err
		}
		item.AnnotatedPath = &annotated
	}
	if item.ThumbnailPath, err = dir.StoreFile(blob.RoleThumbnail, req.ThumbnailPath); err != nil {
		return "", err
	}
	if _, err := dir.StoreBytes(blob.RoleAnnotations, req.Annotations); err != nil {
		return "", err
	}

	if item.SizeBytes, err = usage.SizeOf(s.fs, dir.Path()); err != nil {
		return "", err
	}
	item.CreatedAt = models.FormatCreatedAt(s.now())

	meta, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return "", models.SerializationError("encode metadata", err)
	}
	if _, err := dir.StoreBytes(blob.RoleMeta, meta); err != nil {
		return "", err
	}

	if err := dir.Commit(); err != nil {
		return "", err
	}
	if err := s.catalog.Upsert(ctx, item); err != nil {
		if rmErr := s.blobs.Remove(id); rmErr != nil {
			log.Error().Err(rmErr).Str("id", id).Msg("Failed to roll back screenshot directory")
		}
		return "", err
	}

	log.Debug().Str("id", id).Int64("size_bytes", item.SizeBytes).Msg("Saved screenshot")

	if _, err := s.Enforce(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to enforce storage budget")
	}
	return id, nil
}

// CountAnnotations returns the number of top-level entries of the
// annotation document. Empty input and valid documents that are not an
// array count as zero; malformed JSON is a validation error.
func CountAnnotations(doc []byte) (int, error) {
	if len(bytes.TrimSpace(doc)) == 0 {
		return 0, nil
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return 0, models.ValidationError("parse annotations", err)
	}
	if list, ok := v.([]any); ok {
		return len(list), nil
	}
	return 0, nil
}

// List returns the catalog filtered, sorted newest first and limited by q
func (s *Service) List(ctx context.Context, q Query) ([]models.Screenshot, error) {
	items, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Apply(items, q), nil
}

// Get returns the catalog record of id
func (s *Service) Get(ctx context.Context, id string) (models.Screenshot, error) {
	if err := blob.ValidateID(id); err != nil {
		return models.Screenshot{}, err
	}
	items, err := s.catalog.Load(ctx)
	if err != nil {
		return models.Screenshot{}, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return models.Screenshot{}, models.NotFoundError("get screenshot", id)
}

// Delete removes item id. Deleting a missing item succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := blob.ValidateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.remove(ctx, id); err != nil {
		return err
	}
	log.Debug().Str("id", id).Msg("Deleted screenshot")
	return nil
}

// remove is the single removal procedure shared by Delete and eviction.
// The catalog entry is only dropped once the directory is gone.
func (s *Service) remove(ctx context.Context, id string) error {
	if err := s.blobs.Remove(id); err != nil {
		return err
	}
	return s.catalog.RemoveByID(ctx, id)
}

// Usage recomputes usage from disk
func (s *Service) Usage(ctx context.Context) (models.Usage, error) {
	totals, err := usage.Total(ctx, s.fs, s.blobs.Root())
	if err != nil {
		return models.Usage{}, err
	}
	return models.Usage{
		UsedBytes:   totals.UsedBytes,
		BudgetBytes: s.Budget(),
		ItemCount:   totals.ItemCount,
	}, nil
}

// SetUploadedURL records where item id was uploaded to. This is the only
// field that changes after creation; Save never sets it.
func (s *Service) SetUploadedURL(ctx context.Context, id, rawURL string) (models.Screenshot, error) {
	if err := blob.ValidateID(id); err != nil {
		return models.Screenshot{}, err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return models.Screenshot{}, models.ValidationError("parse uploaded url", err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return models.Screenshot{}, models.ValidationError("parse uploaded url", fmt.Errorf("%q is not an absolute http(s) url", rawURL))
	}

	item, err := s.catalog.Update(ctx, id, func(it *models.Screenshot) error {
		it.UploadedURL = &rawURL
		return nil
	})
	if err != nil {
		return models.Screenshot{}, err
	}

	meta, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return item, models.SerializationError("encode metadata", err)
	}
	if err := s.blobs.ReplaceFile(id, blob.RoleMeta, meta); err != nil {
		log.Warn().Err(err).Str("id", id).Msg("Failed to refresh meta.json")
	}
	return item, nil
}
