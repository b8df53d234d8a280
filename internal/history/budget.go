package history

import (
	"context"

	"github.com/pders01/shotvault/internal/usage"
	"github.com/rs/zerolog/log"
)

// EnforceReport describes one budget enforcement run
type EnforceReport struct {
	BudgetBytes int64    `json:"budget_bytes" yaml:"budget_bytes"`
	BeforeBytes int64    `json:"before_bytes" yaml:"before_bytes"`
	AfterBytes  int64    `json:"after_bytes" yaml:"after_bytes"`
	Evicted     []string `json:"evicted" yaml:"evicted"`
	Failed      []string `json:"failed,omitempty" yaml:"failed,omitempty"`
	DryRun      bool     `json:"dry_run" yaml:"dry_run"`
}

// OverBudget reports whether usage still exceeds the budget after the run
func (r EnforceReport) OverBudget() bool {
	return r.AfterBytes > r.BudgetBytes
}

// Enforce evicts the oldest items until live usage is at or below the
// budget. A removal that fails is logged and skipped; the next oldest item
// is tried instead.
func (s *Service) Enforce(ctx context.Context) (EnforceReport, error) {
	return s.evict(ctx, false)
}

// PlanEviction reports what Enforce would evict without deleting anything
func (s *Service) PlanEviction(ctx context.Context) (EnforceReport, error) {
	return s.evict(ctx, true)
}

func (s *Service) evict(ctx context.Context, dryRun bool) (EnforceReport, error) {
	s.enforceMu.Lock()
	defer s.enforceMu.Unlock()

	budget := s.Budget()
	totals, err := usage.Total(ctx, s.fs, s.blobs.Root())
	if err != nil {
		return EnforceReport{}, err
	}

	report := EnforceReport{
		BudgetBytes: budget,
		BeforeBytes: totals.UsedBytes,
		AfterBytes:  totals.UsedBytes,
		Evicted:     []string{},
		DryRun:      dryRun,
	}
	if totals.UsedBytes <= budget {
		return report, nil
	}

	items, err := s.catalog.Load(ctx)
	if err != nil {
		return report, err
	}
	oldestFirst(items)

	current := totals.UsedBytes
	for _, item := range items {
		if current <= budget {
			break
		}

		size, err := usage.SizeOf(s.fs, s.blobs.ItemPath(item.ID))
		if err != nil {
			log.Warn().Err(err).Str("id", item.ID).Msg("Failed to measure screenshot, skipping eviction")
			report.Failed = append(report.Failed, item.ID)
			continue
		}

		if !dryRun {
			if err := s.remove(ctx, item.ID); err != nil {
				log.Warn().Err(err).Str("id", item.ID).Msg("Failed to evict screenshot")
				report.Failed = append(report.Failed, item.ID)
				continue
			}
			log.Info().
				Str("id", item.ID).
				Str("created_at", item.CreatedAt).
				Int64("size_bytes", size).
				Msg("Evicted screenshot over storage budget")
		}

		report.Evicted = append(report.Evicted, item.ID)
		current = usage.Subtract(current, size)
	}

	report.AfterBytes = current
	return report, nil
}
