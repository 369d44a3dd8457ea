package model

import (
	"strings"
	"time"
	"unicode"
)

// TransferSuggestion is a scored candidate pair surfaced for user
// confirmation. Suggestions are ephemeral: recomputed on demand, never
// persisted. At most one suggestion exists per unordered (base, match) pair.
type TransferSuggestion struct {
	BaseID    string
	MatchID   string
	Amount    float64
	Score     float64
	DaysApart int
}

// TransferWeight is a learned affinity between an account pair and a payee
// bucket, adjusted up on confirmed links and down on rejected suggestions.
// It biases suggestion scoring but is never a hard constraint.
type TransferWeight struct {
	UpdatedAt       time.Time
	DebitAccountID  string
	CreditAccountID string
	PayeeBucket     string
	Weight          float64
}

// PayeeBucket normalizes a payee into the coarse bucket used to key learned
// transfer weights: lowercased letters and spaces only, collapsed whitespace,
// truncated to the first three words.
func PayeeBucket(payee string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(payee) {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	words := strings.Fields(b.String())
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}
