// Package transfer implements transfer detection: candidate search,
// suggestion scoring, learned account-pair affinity, and the link/unlink
// state machine over transaction kind and transfer ID.
package transfer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/service"
)

// Finder searches a bounded window of unlinked transactions for plausible
// opposite legs of a given base transaction.
type Finder struct {
	store service.Storage
}

// NewFinder creates a new candidate finder.
func NewFinder(store service.Storage) *Finder {
	return &Finder{store: store}
}

// FindCandidates returns transactions that could be the opposite leg of
// base, ordered by date distance and then case-insensitive account name.
// The search pool is restricted to transactions with no transfer ID;
// cfg.FetchLimit caps the pool before filtering. The base itself and
// transactions in the base's account are never returned.
func (f *Finder) FindCandidates(ctx context.Context, base model.Transaction, cfg service.MatchConfig) ([]model.Transaction, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	filter := service.TransactionFilter{
		UnlinkedOnly: true,
		Limit:        cfg.FetchLimit,
	}
	if cfg.CandidateWindowDays > 0 {
		start := base.Date.AddDate(0, 0, -cfg.CandidateWindowDays)
		end := base.Date.AddDate(0, 0, cfg.CandidateWindowDays)
		filter.StartDate = &start
		filter.EndDate = &end
	}

	pool, err := f.store.GetTransactions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidate pool: %w", err)
	}

	accountNames, err := accountNameIndex(ctx, f.store)
	if err != nil {
		return nil, err
	}

	var candidates []model.Transaction
	for _, cand := range pool {
		if cand.ID == base.ID {
			continue
		}
		if cand.AccountID == base.AccountID {
			continue
		}
		if cand.TransferID != "" {
			continue
		}
		if cand.Kind != model.KindStandard && cand.Kind != model.KindTransfer {
			continue
		}
		if !amountsPair(base, cand) {
			continue
		}
		candidates = append(candidates, cand)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		di := absDays(base.Date, candidates[i].Date)
		dj := absDays(base.Date, candidates[j].Date)
		if di != dj {
			return di < dj
		}
		ni := strings.ToLower(accountNames[candidates[i].AccountID])
		nj := strings.ToLower(accountNames[candidates[j].AccountID])
		if ni != nj {
			return ni < nj
		}
		return candidates[i].ID < candidates[j].ID
	})

	return candidates, nil
}

// amountsPair reports whether cand's amount is the exact negation of base's,
// or differs from the negation by at most 1% of the mean absolute magnitude
// of the two amounts. The tolerance absorbs small fees and rounding.
func amountsPair(base, cand model.Transaction) bool {
	baseCents := base.AmountCents()
	candCents := cand.AmountCents()

	diff := float64(baseCents + candCents)
	if diff < 0 {
		diff = -diff
	}
	if diff == 0 {
		return true
	}

	mean := (math.Abs(float64(baseCents)) + math.Abs(float64(candCents))) / 2
	return diff <= mean*0.01
}

// absDays returns the whole-day distance between two dates, ignoring
// time-of-day.
func absDays(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(bd.Sub(ad).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// accountNameIndex builds an ID-to-name lookup for deterministic
// account-name ordering.
func accountNameIndex(ctx context.Context, store service.Storage) (map[string]string, error) {
	accounts, err := store.GetAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	return names, nil
}
