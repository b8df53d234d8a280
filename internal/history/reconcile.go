package history

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/pders01/shotvault/internal/blob"
	"github.com/pders01/shotvault/internal/models"
	"github.com/rs/zerolog/log"
)

// StaleStagingAge is how old a staging directory must be before Reconcile
// treats it as left over from an interrupted save.
const StaleStagingAge = time.Hour

// ReconcileReport lists what Reconcile changed
type ReconcileReport struct {
	// Adopted item directories had a valid meta.json but no catalog entry
	Adopted []string `json:"adopted" yaml:"adopted"`
	// Dropped catalog entries had no item directory
	Dropped []string `json:"dropped" yaml:"dropped"`
	// Removed item directories had no catalog entry and no usable meta.json
	Removed []string `json:"removed" yaml:"removed"`
	// Swept staging directories were abandoned by interrupted saves
	Swept []string `json:"swept" yaml:"swept"`
}

// Changed reports whether anything was repaired
func (r ReconcileReport) Changed() bool {
	return len(r.Adopted)+len(r.Dropped)+len(r.Removed)+len(r.Swept) > 0
}

// Reconcile restores the one-to-one mapping between catalog entries and
// item directories after a crash. A directory committed just before the
// process died still carries its meta.json and is re-cataloged.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	s.enforceMu.Lock()
	defer s.enforceMu.Unlock()

	var report ReconcileReport

	swept, err := s.blobs.SweepStaging(StaleStagingAge)
	report.Swept = swept
	if err != nil {
		return report, err
	}

	// Load before listing: a save commits its directory before its catalog
	// entry, so every loaded entry that still exists is on disk by now.
	items, err := s.catalog.Load(ctx)
	if err != nil {
		return report, err
	}
	ids, err := s.blobs.IDs()
	if err != nil {
		return report, err
	}

	onDisk := make(map[string]bool, len(ids))
	for _, id := range ids {
		onDisk[id] = true
	}
	cataloged := make(map[string]bool, len(items))
	for _, it := range items {
		cataloged[it.ID] = true
		if onDisk[it.ID] {
			continue
		}
		if err := s.catalog.RemoveByID(ctx, it.ID); err != nil {
			return report, err
		}
		report.Dropped = append(report.Dropped, it.ID)
	}

	for _, id := range ids {
		if cataloged[id] {
			continue
		}
		item, ok := s.readMeta(id)
		if ok {
			if err := s.catalog.Upsert(ctx, item); err != nil {
				return report, err
			}
			report.Adopted = append(report.Adopted, id)
			continue
		}
		if err := s.blobs.Remove(id); err != nil {
			return report, err
		}
		report.Removed = append(report.Removed, id)
	}

	if report.Changed() {
		log.Info().
			Int("adopted", len(report.Adopted)).
			Int("dropped", len(report.Dropped)).
			Int("removed", len(report.Removed)).
			Int("swept", len(report.Swept)).
			Msg("Reconciled catalog with storage root")
	}
	return report, nil
}

func (s *Service) readMeta(id string) (models.Screenshot, bool) {
	if blob.ValidateID(id) != nil {
		return models.Screenshot{}, false
	}
	data, err := s.blobs.ReadFile(id, blob.RoleMeta)
	if err != nil {
		return models.Screenshot{}, false
	}
	var item models.Screenshot
	if err := json.Unmarshal(data, &item); err != nil || item.ID != id {
		return models.Screenshot{}, false
	}
	if err := item.NormalizeCreatedAt(); err != nil {
		log.Warn().Err(err).Str("id", id).Msg("Ignoring meta.json with unreadable created_at")
		return models.Screenshot{}, false
	}
	return item, true
}
