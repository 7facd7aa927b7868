// Package session holds the items of one editing session together with the
// z-order promotion counter.
package session

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"byteGiftAPI/internal/types/board"
)

// InitialZIndex is the counter value of a fresh session. Items created in it
// start above anything a page renders at its default stacking level.
const InitialZIndex = 10

var ErrDuplicateItem = errors.New("item id already on the board")

// Session is not safe for concurrent use; one goroutine owns it.
type Session struct {
	order         []string
	items         map[string]*board.Item
	highestZIndex int
}

func New() *Session {
	return &Session{
		items:         make(map[string]*board.Item),
		highestZIndex: InitialZIndex,
	}
}

// FromItems rebuilds a session from a stored item list, for example a
// deserialized snapshot. The counter resumes from the highest zIndex seen.
func FromItems(items []board.Item) (*Session, error) {
	s := New()
	for _, it := range items {
		if err := s.AddItem(it); err != nil {
			return nil, err
		}
		s.highestZIndex = max(s.highestZIndex, it.ZIndex)
	}
	return s, nil
}

func (s *Session) HighestZIndex() int { return s.highestZIndex }

func (s *Session) Len() int { return len(s.order) }

// NextZIndex advances the promotion counter and returns the new top.
func (s *Session) NextZIndex() int {
	s.highestZIndex++
	return s.highestZIndex
}

// Create builds an item on top of the stack and adds it.
func (s *Session) Create(p board.Payload, position board.Point) (board.Item, error) {
	item := board.New(p, position, s.NextZIndex())
	if err := s.AddItem(item); err != nil {
		return board.Item{}, err
	}
	return item, nil
}

// AddItem inserts an item as-is; its zIndex is left untouched.
func (s *Session) AddItem(item board.Item) error {
	item.Payload = board.Normalize(item.Payload)
	if err := item.Validate(); err != nil {
		return err
	}
	if _, ok := s.items[item.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
	}

	s.items[item.ID] = &item
	s.order = append(s.order, item.ID)
	return nil
}

func (s *Session) RemoveItem(id string) bool {
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return true
}

// Item returns a copy; changes to it do not reach the session.
func (s *Session) Item(id string) (board.Item, bool) {
	it, ok := s.items[id]
	if !ok {
		return board.Item{}, false
	}
	return *it, true
}

// UpdatePosition is a no-op for unknown ids.
func (s *Session) UpdatePosition(id string, p board.Point) {
	if it, ok := s.items[id]; ok {
		it.Position = p
	}
}

// Promote puts the item on top of the stack. Unknown ids leave the counter alone.
func (s *Session) Promote(id string) (int, bool) {
	it, ok := s.items[id]
	if !ok {
		return 0, false
	}
	it.ZIndex = s.NextZIndex()
	return it.ZIndex, true
}

// UpdateNoteContent replaces a note's text. It reports false when id is not a note.
func (s *Session) UpdateNoteContent(id, text string) bool {
	it, ok := s.items[id]
	if !ok {
		return false
	}
	n, ok := it.Payload.(board.Note)
	if !ok {
		return false
	}
	n.Content = text
	it.Payload = n
	return true
}

// Items yields copies in insertion order. The sequence can be ranged over
// any number of times.
func (s *Session) Items() iter.Seq[board.Item] {
	return func(yield func(board.Item) bool) {
		for _, id := range s.order {
			it, ok := s.items[id]
			if !ok {
				continue
			}
			if !yield(*it) {
				return
			}
		}
	}
}

// List collects Items into a slice.
func (s *Session) List() []board.Item {
	return slices.Collect(s.Items())
}

// PaintOrder returns the items sorted by zIndex, ties kept in insertion order.
func PaintOrder(items []board.Item) []board.Item {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b board.Item) int { return a.ZIndex - b.ZIndex })
	return out
}
