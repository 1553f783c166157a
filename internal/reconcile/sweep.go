package reconcile

import (
	"context"
	"time"

	"novac/internal/transaction"
	"novac/kit/observability"
)

// ListerContract define the paged read a sweep walks.
type ListerContract interface {
	List(ctx context.Context, f transaction.ListFilter, page, perPage int) (*transaction.ListResult, error)
}

// ReverifierContract define single-reference re-verification.
type ReverifierContract interface {
	Reverify(ctx context.Context, reference string) (*Outcome, error)
}

type SweepReport struct {
	Checked int      `json:"checked"`
	Changed int      `json:"changed"`
	Failed  []string `json:"failed,omitempty"`
}

// Sweeper re-verifies pending transactions that never received a webhook.
type Sweeper struct {
	lister     ListerContract
	reverifier ReverifierContract
	logger     *observability.Logger
	now        func() time.Time
}

func NewSweeper(lister ListerContract, reverifier ReverifierContract, logger *observability.Logger) *Sweeper {
	return &Sweeper{lister: lister, reverifier: reverifier, logger: logger, now: time.Now}
}

// Sweep checks up to limit pending records created before now-olderThan,
// oldest first. A failed reference is reported and the sweep moves on.
func (s *Sweeper) Sweep(ctx context.Context, olderThan time.Duration, limit int) (*SweepReport, error) {
	report := &SweepReport{}
	if limit <= 0 {
		return report, nil
	}
	f := transaction.ListFilter{
		Status:        transaction.StatusPending,
		OrderBy:       "created_at",
		Order:         "ASC",
		CreatedBefore: s.now().Add(-olderThan),
	}

	// Reverify moves records out of pending, so collect the batch before
	// touching any of it.
	var refs []string
	for page := 1; len(refs) < limit; page++ {
		res, err := s.lister.List(ctx, f, page, transaction.MaxPerPage)
		if err != nil {
			s.logger.Error("sweep list failed", "layer", "service", "component", "sweeper", "method", "Sweep", "page", page, "error", err.Error())
			return report, err
		}
		for _, t := range res.Items {
			if len(refs) == limit {
				break
			}
			refs = append(refs, t.Reference)
		}
		if len(res.Items) == 0 || len(res.Items) < res.PerPage || int64(page*res.PerPage) >= res.Total {
			break
		}
	}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		out, err := s.reverifier.Reverify(ctx, ref)
		if err != nil {
			s.logger.Warn("sweep reverify failed", "layer", "service", "component", "sweeper", "method", "Sweep", "reference", ref, "error", err.Error())
			report.Failed = append(report.Failed, ref)
			continue
		}
		if out.Changed() {
			report.Changed++
		}
	}
	s.logger.Info("sweep finished", "layer", "service", "component", "sweeper", "checked", report.Checked, "changed", report.Changed, "failed", len(report.Failed))
	return report, nil
}
