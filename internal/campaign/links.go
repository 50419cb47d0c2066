package campaign

import (
	"fmt"
	"slices"
)

// LinkCardToClip ties a card to a clip. The card's LinkedClipID and the
// clip's CardLinks are updated together; a card already linked elsewhere is
// first removed from its previous clip. Unknown ids are a no-op.
func (e *Engine) LinkCardToClip(clipID, cardID string) {
	e.mutate(true, []Store{StoreTimeline, StoreCards}, func() bool {
		return e.linkLocked(cardID, clipID)
	})
}

// UnlinkCard clears the card's link and removes it from the clip it was
// linked to. Unlinking an unlinked card is a no-op.
func (e *Engine) UnlinkCard(cardID string) {
	e.mutate(true, []Store{StoreTimeline, StoreCards}, func() bool {
		return e.unlinkLocked(cardID)
	})
}

// UnlinkCardFromClip removes the pairing between clipID and cardID if it
// exists, leaving any other link of the card untouched.
func (e *Engine) UnlinkCardFromClip(clipID, cardID string) {
	e.mutate(true, []Store{StoreTimeline, StoreCards}, func() bool {
		changed := e.timeline.removeLink(clipID, cardID, e.now())
		if c := e.cards.card(cardID); c != nil && c.LinkedClipID == clipID {
			c.LinkedClipID = ""
			changed = true
		}
		return changed
	})
}

func (e *Engine) linkLocked(cardID, clipID string) bool {
	card := e.cards.card(cardID)
	if card == nil || e.timeline.clip(clipID) == nil {
		return false
	}
	now := e.now()
	changed := false
	if prev := card.LinkedClipID; prev != "" && prev != clipID {
		e.timeline.removeLink(prev, cardID, now)
		changed = true
	}
	if card.LinkedClipID != clipID {
		card.LinkedClipID = clipID
		changed = true
	}
	if e.timeline.addLink(clipID, cardID, now) {
		changed = true
	}
	return changed
}

func (e *Engine) unlinkLocked(cardID string) bool {
	card := e.cards.card(cardID)
	if card == nil || card.LinkedClipID == "" {
		return false
	}
	e.timeline.removeLink(card.LinkedClipID, cardID, e.now())
	card.LinkedClipID = ""
	return true
}

// LinkViolation describes one break in the card/clip pairing.
type LinkViolation struct {
	CardID string
	ClipID string
	Reason string
}

func (v LinkViolation) String() string {
	return fmt.Sprintf("card %s / clip %s: %s", v.CardID, v.ClipID, v.Reason)
}

// CheckLinks returns every violation of the card/clip pairing. It is empty
// whenever links were only changed through Engine methods.
func (e *Engine) CheckLinks() []LinkViolation {
	var out []LinkViolation
	e.read(func() { out = e.checkLinksLocked() })
	return out
}

func (e *Engine) checkLinksLocked() []LinkViolation {
	var out []LinkViolation
	for _, card := range e.cards.cards {
		if card.LinkedClipID == "" {
			continue
		}
		clip := e.timeline.clip(card.LinkedClipID)
		switch {
		case clip == nil:
			out = append(out, LinkViolation{card.ID, card.LinkedClipID, "card links to missing clip"})
		case !slices.Contains(clip.CardLinks, card.ID):
			out = append(out, LinkViolation{card.ID, clip.ID, "clip does not list card"})
		}
	}
	for _, clip := range e.timeline.clips {
		for i, cardID := range clip.CardLinks {
			if slices.Index(clip.CardLinks, cardID) != i {
				out = append(out, LinkViolation{cardID, clip.ID, "duplicate card in clip links"})
				continue
			}
			card := e.cards.card(cardID)
			switch {
			case card == nil:
				out = append(out, LinkViolation{cardID, clip.ID, "clip lists missing card"})
			case card.LinkedClipID != clip.ID:
				out = append(out, LinkViolation{cardID, clip.ID, "card links elsewhere"})
			}
		}
	}
	return out
}

// repairLinksLocked rebuilds every clip's CardLinks from the card side, which
// holds at most one link per card. Links to missing clips are cleared.
func (e *Engine) repairLinksLocked() {
	for i := range e.cards.cards {
		c := &e.cards.cards[i]
		if c.LinkedClipID != "" && e.timeline.clip(c.LinkedClipID) == nil {
			c.LinkedClipID = ""
		}
	}
	for i := range e.timeline.clips {
		clip := &e.timeline.clips[i]
		links := make([]string, 0, len(clip.CardLinks))
		// Keep the existing order for ids that are still valid.
		for _, id := range clip.CardLinks {
			if c := e.cards.card(id); c != nil && c.LinkedClipID == clip.ID && !slices.Contains(links, id) {
				links = append(links, id)
			}
		}
		clip.CardLinks = links
	}
	for _, c := range e.cards.cards {
		if c.LinkedClipID != "" {
			e.timeline.addLink(c.LinkedClipID, c.ID, e.timeline.clip(c.LinkedClipID).UpdatedAt)
		}
	}
}
