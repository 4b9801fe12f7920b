package variant

import (
	"fmt"

	"dart-scoring-server/matcherrors"
)

// Entry is one selectable setup: the variant it builds and the settings it builds it with.
type Entry struct {
	Variant ID `json:"variant"`
	Option
}

// Group is a variant's options in the order the variant lists them.
type Group struct {
	Variant ID      `json:"variant"`
	Options []Entry `json:"options"`
}

// Catalog maps option ids to variant setups. It is filled once at startup and
// read-only afterwards.
type Catalog struct {
	entries map[string]Entry
	order   []string // registration order for deterministic Groups()
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]Entry)}
}

// DefaultCatalog holds the options of every known variant.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, id := range IDs() {
		c.Register(MustNew(id, Settings{}))
	}
	return c
}

// Register adds every option v lists. A later option with the same id replaces
// the earlier one but keeps its position.
func (c *Catalog) Register(v Variant) {
	for _, o := range v.GameOptions() {
		if _, exists := c.entries[o.ID]; !exists {
			c.order = append(c.order, o.ID)
		}
		c.entries[o.ID] = Entry{Variant: v.ID(), Option: o}
	}
}

// Lookup returns the entry for optionID.
func (c *Catalog) Lookup(optionID string) (Entry, bool) {
	e, ok := c.entries[optionID]
	return e, ok
}

// Build constructs the variant the option describes.
func (c *Catalog) Build(optionID string) (Variant, error) {
	e, ok := c.entries[optionID]
	if !ok {
		return nil, fmt.Errorf("%w: option %q", matcherrors.ErrUnknownVariant, optionID)
	}
	return New(e.Variant, e.Value)
}

// Groups returns the entries grouped by variant, in registration order.
func (c *Catalog) Groups() []Group {
	var groups []Group
	index := make(map[ID]int)
	for _, id := range c.order {
		e := c.entries[id]
		i, ok := index[e.Variant]
		if !ok {
			i = len(groups)
			index[e.Variant] = i
			groups = append(groups, Group{Variant: e.Variant})
		}
		groups[i].Options = append(groups[i].Options, e)
	}
	return groups
}

// Len returns the number of registered options.
func (c *Catalog) Len() int { return len(c.order) }
