package scoring

import (
	"cmp"
	"slices"

	"github.com/DoyleJ11/car-build-backend/internal/catalog"
)

// Unset marks a category the team never answered.
const Unset = -1

const (
	LowestTierReliability = 1
	BonusNoLowestTier     = 5
	PenaltyManyLowestTier = 5
	ManyLowestTierCount   = 3
	PenaltyOverBudget     = 5
)

type Totals struct {
	Reliability int `json:"reliability"`
	Cost        int `json:"cost"`
	Risk        int `json:"risk"`
	LowestTier  int `json:"lowest_tier"`
}

type Result struct {
	Points   int      `json:"points"`
	Complete bool     `json:"complete"`
	Totals   *Totals  `json:"totals,omitempty"`
	Summary  *Summary `json:"summary,omitempty"`
}

// Simple sums option points. A team missing any category scores 0.
func Simple(c *catalog.Catalog, choices []int) int {
	if len(choices) != c.Len() {
		return 0
	}
	total := 0
	for i, idx := range choices {
		opt, ok := c.Option(i, idx)
		if !ok {
			return 0
		}
		total += opt.Points
	}
	return total
}

// Accumulate adds up the build vector of every set choice. The second return
// value is false when at least one slot is unset or invalid.
func Accumulate(c *catalog.Catalog, choices []int) (Totals, bool) {
	var t Totals
	complete := len(choices) == c.Len()
	for i := 0; i < c.Len(); i++ {
		if i >= len(choices) {
			complete = false
			break
		}
		opt, ok := c.Option(i, choices[i])
		if !ok {
			complete = false
			continue
		}
		t.Reliability += opt.Reliability
		t.Cost += opt.Cost
		t.Risk += opt.Risk
		if opt.Reliability == LowestTierReliability {
			t.LowestTier++
		}
	}
	return t, complete
}

// Points applies the build bonuses and penalties. They are independent and
// can all apply at once.
func Points(t Totals, budget int) int {
	points := t.Reliability + t.Risk
	if t.Cost > budget {
		points -= PenaltyOverBudget
	}
	if t.LowestTier == 0 {
		points += BonusNoLowestTier
	}
	if t.LowestTier >= ManyLowestTierCount {
		points -= PenaltyManyLowestTier
	}
	return points
}

func Build(c *catalog.Catalog, choices []int) Result {
	t, complete := Accumulate(c, choices)
	summary := Summarize(t, c.BudgetLimit)
	r := Result{Complete: complete, Totals: &t, Summary: &summary}
	if complete {
		r.Points = Points(t, c.BudgetLimit)
	}
	return r
}

// Score dispatches on the catalog variant.
func Score(c *catalog.Catalog, choices []int) Result {
	if c.Variant == catalog.VariantBuild {
		return Build(c, choices)
	}
	points := Simple(c, choices)
	return Result{Points: points, Complete: isComplete(c, choices)}
}

func isComplete(c *catalog.Catalog, choices []int) bool {
	if len(choices) != c.Len() {
		return false
	}
	for i, idx := range choices {
		if _, ok := c.Option(i, idx); !ok {
			return false
		}
	}
	return true
}

// Standing is the scoring input for one team.
type Standing struct {
	TeamID  string
	Name    string
	Seq     int
	Choices []int
}

type Entry struct {
	Rank    int      `json:"rank"`
	TeamID  string   `json:"id"`
	Name    string   `json:"name"`
	Choices []string `json:"choices"`
	Result
	seq int
}

// Leaderboard scores every team and orders them by points, highest first.
// Equal scores keep join order.
func Leaderboard(c *catalog.Catalog, teams []Standing) []Entry {
	entries := make([]Entry, 0, len(teams))
	for _, t := range teams {
		entries = append(entries, Entry{
			TeamID:  t.TeamID,
			Name:    t.Name,
			Choices: Labels(c, t.Choices),
			Result:  Score(c, t.Choices),
			seq:     t.Seq,
		})
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if a.Points != b.Points {
			return cmp.Compare(b.Points, a.Points)
		}
		return cmp.Compare(a.seq, b.seq)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Labels resolves chosen option indexes to labels, "" for unset slots.
func Labels(c *catalog.Catalog, choices []int) []string {
	out := make([]string, c.Len())
	for i := range out {
		if i >= len(choices) {
			continue
		}
		if opt, ok := c.Option(i, choices[i]); ok {
			out[i] = opt.Label
		}
	}
	return out
}
