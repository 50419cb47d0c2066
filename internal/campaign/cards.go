package campaign

import (
	"cmp"
	"slices"
	"time"
)

// CardSpec describes a card to create.
type CardSpec struct {
	Type         CardType       `json:"type"`
	Content      string         `json:"content"`
	Colour       string         `json:"colour,omitempty"`
	LinkedClipID string         `json:"linkedClipId,omitempty"`
	CreatedBy    string         `json:"createdBy,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// CardUpdate holds the card fields to change. Setting LinkedClipID relinks
// the card (empty string unlinks) through the same path as LinkCardToClip.
type CardUpdate struct {
	Type         *CardType      `json:"type,omitempty"`
	Content      *string        `json:"content,omitempty"`
	Colour       *string        `json:"colour,omitempty"`
	LinkedClipID *string        `json:"linkedClipId,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// CardState is a copy of the card store including view-only fields.
type CardState struct {
	Cards           []Card   `json:"cards"`
	SelectedCardIDs []string `json:"selectedCardIds"`
	FilterByType    CardType `json:"filterByType,omitempty"`
	SortBy          CardSort `json:"sortBy"`
}

type cardStore struct {
	cards       []Card
	selectedIDs []string
	filter      CardType
	sortBy      CardSort
}

func newCardStore() cardStore {
	return cardStore{sortBy: SortByTimestamp}
}

func (s *cardStore) index(id string) int {
	return slices.IndexFunc(s.cards, func(c Card) bool { return c.ID == id })
}

func (s *cardStore) card(id string) *Card {
	if i := s.index(id); i >= 0 {
		return &s.cards[i]
	}
	return nil
}

func (s *cardStore) state() CardState {
	st := CardState{
		Cards:           make([]Card, len(s.cards)),
		SelectedCardIDs: slices.Clone(s.selectedIDs),
		FilterByType:    s.filter,
		SortBy:          s.sortBy,
	}
	for i, c := range s.cards {
		st.Cards[i] = copyCard(c)
	}
	if st.SelectedCardIDs == nil {
		st.SelectedCardIDs = []string{}
	}
	return st
}

func copyCard(c Card) Card {
	c.Metadata = cloneMap(c.Metadata)
	return c
}

// AddCard creates a card and returns its id, or "" for an unknown type. An
// empty colour defaults from the type. A non-empty LinkedClipID links the
// card to that clip in both directions; an unknown clip leaves it unlinked.
func (e *Engine) AddCard(spec CardSpec) string {
	var id string
	e.mutate(true, []Store{StoreCards, StoreTimeline}, func() bool {
		id = e.addCardLocked(spec)
		return id != ""
	})
	return id
}

func (e *Engine) addCardLocked(spec CardSpec) string {
	if !spec.Type.Valid() {
		return ""
	}
	colour := spec.Colour
	if colour == "" {
		colour = spec.Type.DefaultColour()
	}
	createdBy := spec.CreatedBy
	if createdBy == "" {
		createdBy = e.meta.meta.UserID
	}
	c := Card{
		ID:        e.newID("card"),
		Type:      spec.Type,
		Content:   spec.Content,
		Timestamp: e.now(),
		Colour:    colour,
		CreatedBy: createdBy,
		Metadata:  cloneMap(spec.Metadata),
	}
	e.cards.cards = append(e.cards.cards, c)
	if spec.LinkedClipID != "" {
		e.linkLocked(c.ID, spec.LinkedClipID)
	}
	return c.ID
}

// RemoveCard deletes the card and removes it from its clip's links.
func (e *Engine) RemoveCard(id string) {
	e.mutate(true, []Store{StoreCards, StoreTimeline, StoreMemory}, func() bool {
		i := e.cards.index(id)
		if i < 0 {
			return false
		}
		e.unlinkLocked(id)
		e.memory.dropEntity(EntityCard, id)
		e.cards.cards = slices.Delete(e.cards.cards, i, i+1)
		e.cards.selectedIDs = without(e.cards.selectedIDs, id)
		return true
	})
}

// UpdateCard shallow-merges u into the card. A change to LinkedClipID is
// applied to both sides of the link.
func (e *Engine) UpdateCard(id string, u CardUpdate) {
	e.mutate(true, []Store{StoreCards, StoreTimeline}, func() bool {
		c := e.cards.card(id)
		if c == nil {
			return false
		}
		if u.Type != nil && u.Type.Valid() {
			c.Type = *u.Type
		}
		if u.Content != nil {
			c.Content = *u.Content
		}
		if u.Colour != nil {
			c.Colour = *u.Colour
		}
		if u.Metadata != nil {
			c.Metadata = cloneMap(u.Metadata)
		}
		if u.LinkedClipID != nil {
			if *u.LinkedClipID == "" {
				e.unlinkLocked(id)
			} else {
				e.linkLocked(id, *u.LinkedClipID)
			}
		}
		return true
	})
}

// SelectCards replaces the card selection. Unknown ids are ignored.
func (e *Engine) SelectCards(ids []string) {
	e.mutate(false, []Store{StoreView}, func() bool {
		e.cards.selectedIDs = known(ids, func(id string) bool { return e.cards.index(id) >= 0 })
		return true
	})
}

// ClearCardSelection empties the card selection.
func (e *Engine) ClearCardSelection() {
	e.mutate(false, []Store{StoreView}, func() bool {
		e.cards.selectedIDs = nil
		return true
	})
}

// FilterCardsByType restricts VisibleCards to one type. An empty type clears
// the filter; an unknown type is ignored.
func (e *Engine) FilterCardsByType(t CardType) {
	if t != "" && !t.Valid() {
		return
	}
	e.mutate(true, []Store{StoreCards}, func() bool {
		e.cards.filter = t
		return true
	})
}

// SortCards sets the ordering used by VisibleCards.
func (e *Engine) SortCards(by CardSort) {
	switch by {
	case SortByTimestamp, SortByType, SortByRecent:
	default:
		return
	}
	e.mutate(true, []Store{StoreCards}, func() bool {
		e.cards.sortBy = by
		return true
	})
}

// Cards returns a copy of the card state.
func (e *Engine) Cards() CardState {
	var s CardState
	e.read(func() { s = e.cards.state() })
	return s
}

// Card returns a copy of the card with the given id.
func (e *Engine) Card(id string) (Card, bool) {
	var (
		c  Card
		ok bool
	)
	e.read(func() {
		if p := e.cards.card(id); p != nil {
			c, ok = copyCard(*p), true
		}
	})
	return c, ok
}

// VisibleCards returns the cards with the current filter and sort applied.
func (e *Engine) VisibleCards() []Card {
	var (
		out    []Card
		sortBy CardSort
	)
	e.read(func() {
		sortBy = e.cards.sortBy
		for _, c := range e.cards.cards {
			if e.cards.filter == "" || c.Type == e.cards.filter {
				out = append(out, copyCard(c))
			}
		}
	})
	sortCards(out, sortBy)
	return out
}

func sortCards(cards []Card, by CardSort) {
	byTime := func(a, b Card) int { return a.Timestamp.Compare(b.Timestamp) }
	switch by {
	case SortByRecent:
		slices.SortStableFunc(cards, func(a, b Card) int { return -byTime(a, b) })
	case SortByType:
		slices.SortStableFunc(cards, func(a, b Card) int {
			if c := cmp.Compare(a.Type, b.Type); c != 0 {
				return c
			}
			return byTime(a, b)
		})
	default:
		slices.SortStableFunc(cards, byTime)
	}
}

// CardsByType returns every card of the given type.
func (e *Engine) CardsByType(t CardType) []Card {
	var out []Card
	e.read(func() {
		for _, c := range e.cards.cards {
			if c.Type == t {
				out = append(out, copyCard(c))
			}
		}
	})
	return out
}

// CardsForClip returns the cards linked to a clip.
func (e *Engine) CardsForClip(clipID string) []Card {
	var out []Card
	e.read(func() {
		for _, c := range e.cards.cards {
			if c.LinkedClipID == clipID && clipID != "" {
				out = append(out, copyCard(c))
			}
		}
	})
	return out
}

// CardsSince returns the cards created at or after t, oldest first.
func (e *Engine) CardsSince(t time.Time) []Card {
	var out []Card
	e.read(func() {
		for _, c := range e.cards.cards {
			if !c.Timestamp.Before(t) {
				out = append(out, copyCard(c))
			}
		}
	})
	sortCards(out, SortByTimestamp)
	return out
}
