package catalog

import (
	"errors"
	"fmt"
)

var ErrEmptyCatalog = errors.New("catalog has no categories")
var ErrEmptyCategory = errors.New("category has no options")
var ErrUnknownVariant = errors.New("unknown scoring variant")

type Variant string

const (
	VariantSimple Variant = "simple"
	VariantBuild  Variant = "build"
)

// Option is one selectable answer. Simple catalogs only use Points, build
// catalogs only use Reliability, Cost and Risk.
type Option struct {
	Label       string `mapstructure:"label"`
	Points      int    `mapstructure:"points"`
	Reliability int    `mapstructure:"reliability"`
	Cost        int    `mapstructure:"cost"`
	Risk        int    `mapstructure:"risk"`
}

type Category struct {
	ID      string   `mapstructure:"id"`
	Name    string   `mapstructure:"name"`
	Options []Option `mapstructure:"options"`
}

type Catalog struct {
	Variant     Variant    `mapstructure:"variant"`
	BudgetLimit int        `mapstructure:"budget_limit"`
	Categories  []Category `mapstructure:"categories"`
}

// Public views carry labels only. Point values stay on the server until the
// leaderboard is computed.
type PublicOption struct {
	Label string `json:"label"`
}

type PublicCategory struct {
	Index   int            `json:"index"`
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Options []PublicOption `json:"options"`
}

type PublicCatalog struct {
	Variant     Variant          `json:"variant"`
	BudgetLimit int              `json:"budget_limit,omitempty"`
	Categories  []PublicCategory `json:"categories"`
}

func (c *Catalog) Len() int { return len(c.Categories) }

func (c *Catalog) Validate() error {
	switch c.Variant {
	case VariantSimple, VariantBuild:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVariant, c.Variant)
	}
	if len(c.Categories) == 0 {
		return ErrEmptyCatalog
	}
	for i, cat := range c.Categories {
		if len(cat.Options) == 0 {
			return fmt.Errorf("category %d (%s): %w", i, cat.ID, ErrEmptyCategory)
		}
	}
	return nil
}

// Option returns the option at (category, option) and false if either index is
// out of range.
func (c *Catalog) Option(category, option int) (Option, bool) {
	if category < 0 || category >= len(c.Categories) {
		return Option{}, false
	}
	opts := c.Categories[category].Options
	if option < 0 || option >= len(opts) {
		return Option{}, false
	}
	return opts[option], true
}

func (c *Catalog) PublicCategory(i int) PublicCategory {
	cat := c.Categories[i]
	opts := make([]PublicOption, len(cat.Options))
	for j, o := range cat.Options {
		opts[j] = PublicOption{Label: o.Label}
	}
	return PublicCategory{Index: i, ID: cat.ID, Name: cat.Name, Options: opts}
}

func (c *Catalog) Public() PublicCatalog {
	cats := make([]PublicCategory, len(c.Categories))
	for i := range c.Categories {
		cats[i] = c.PublicCategory(i)
	}
	pc := PublicCatalog{Variant: c.Variant, Categories: cats}
	if c.Variant == VariantBuild {
		pc.BudgetLimit = c.BudgetLimit
	}
	return pc
}
