package transfer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/service"
)

// Score component weights. Amount closeness dominates, date proximity
// second, learned account-pair affinity provides the remaining boost.
const (
	amountWeight   = 0.55
	dateWeight     = 0.30
	affinityWeight = 0.15
)

// Scorer ranks candidate transaction pairs by transfer likelihood.
type Scorer struct {
	store   service.Storage
	learner *Learner
}

// NewScorer creates a scorer backed by the given store and learner.
func NewScorer(store service.Storage, learner *Learner) *Scorer {
	return &Scorer{store: store, learner: learner}
}

// ComputeSuggestions scores every plausible pair in the pool and returns
// suggestions ranked descending by score. Each transaction ID appears in at
// most one suggestion per pass: pairs are claimed greedily from the top of
// the ranking, and claimed transactions drop out of the remaining pool.
// Output is deterministic for a fixed pool and config.
func (s *Scorer) ComputeSuggestions(ctx context.Context, pool []model.Transaction, cfg service.MatchConfig) ([]model.TransferSuggestion, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	accountNames, err := accountNameIndex(ctx, s.store)
	if err != nil {
		return nil, err
	}

	type scoredPair struct {
		suggestion model.TransferSuggestion
		tieBreak   string
	}

	var pairs []scoredPair
	for i := range pool {
		for j := i + 1; j < len(pool); j++ {
			a, b := pool[i], pool[j]
			if a.AccountID == b.AccountID {
				continue
			}
			if a.TransferID != "" || b.TransferID != "" {
				continue
			}

			base, match := orderLegs(a, b)
			score, daysApart, ok, err := s.scorePair(ctx, base, match, cfg)
			if err != nil {
				return nil, err
			}
			if !ok || score < cfg.MinScore {
				continue
			}

			pairs = append(pairs, scoredPair{
				suggestion: model.TransferSuggestion{
					BaseID:    base.ID,
					MatchID:   match.ID,
					Amount:    abs(base.Amount),
					DaysApart: daysApart,
					Score:     score,
				},
				tieBreak: pairTieBreak(base, match, accountNames),
			})
		}
	}

	// Rank before the greedy claim pass: score descending, then smaller
	// days-apart, then account-name ordering, then IDs as a final
	// deterministic fallback.
	sort.SliceStable(pairs, func(i, j int) bool {
		pi, pj := pairs[i], pairs[j]
		if pi.suggestion.Score != pj.suggestion.Score {
			return pi.suggestion.Score > pj.suggestion.Score
		}
		if pi.suggestion.DaysApart != pj.suggestion.DaysApart {
			return pi.suggestion.DaysApart < pj.suggestion.DaysApart
		}
		if pi.tieBreak != pj.tieBreak {
			return pi.tieBreak < pj.tieBreak
		}
		return pi.suggestion.BaseID+pi.suggestion.MatchID < pj.suggestion.BaseID+pj.suggestion.MatchID
	})

	claimed := make(map[string]bool)
	suggestions := make([]model.TransferSuggestion, 0, len(pairs))
	for _, p := range pairs {
		if claimed[p.suggestion.BaseID] || claimed[p.suggestion.MatchID] {
			continue
		}
		claimed[p.suggestion.BaseID] = true
		claimed[p.suggestion.MatchID] = true
		suggestions = append(suggestions, p.suggestion)
		if cfg.Limit > 0 && len(suggestions) >= cfg.Limit {
			break
		}
	}

	return suggestions, nil
}

// scorePair computes the combined confidence score for a (debit, credit)
// pair. ok is false when the pair falls outside the configured amount or
// date tolerances.
func (s *Scorer) scorePair(ctx context.Context, base, match model.Transaction, cfg service.MatchConfig) (score float64, daysApart int, ok bool, err error) {
	diffCents := base.AmountCents() + match.AmountCents()
	if diffCents < 0 {
		diffCents = -diffCents
	}
	if diffCents > cfg.MaxAmountDifferenceCents {
		return 0, 0, false, nil
	}

	daysApart = absDays(base.Date, match.Date)
	if daysApart > cfg.MaxDaysApart {
		return 0, 0, false, nil
	}

	amountScore := 1.0
	if cfg.MaxAmountDifferenceCents > 0 {
		amountScore = 1.0 - float64(diffCents)/float64(cfg.MaxAmountDifferenceCents)
	}

	dateScore := 1.0
	if cfg.MaxDaysApart > 0 {
		dateScore = 1.0 - float64(daysApart)/float64(cfg.MaxDaysApart)
	}

	affinity := 0.0
	if s.learner != nil {
		w, err := s.learner.Affinity(ctx, base.AccountID, match.AccountID, model.PayeeBucket(base.Payee))
		if err != nil {
			return 0, 0, false, fmt.Errorf("failed to read pair affinity: %w", err)
		}
		affinity = w
	}

	score = amountWeight*amountScore + dateWeight*dateScore + affinityWeight*affinity
	return score, daysApart, true, nil
}

// orderLegs returns the pair as (debit, credit): the outflow leg first. For
// the degenerate zero-amount case the lexically smaller ID is the base.
func orderLegs(a, b model.Transaction) (base, match model.Transaction) {
	switch {
	case a.Amount < b.Amount:
		return a, b
	case b.Amount < a.Amount:
		return b, a
	case a.ID < b.ID:
		return a, b
	default:
		return b, a
	}
}

func pairTieBreak(base, match model.Transaction, accountNames map[string]string) string {
	return strings.ToLower(accountNames[base.AccountID]) + "\x00" + strings.ToLower(accountNames[match.AccountID])
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
