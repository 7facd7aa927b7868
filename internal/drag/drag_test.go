package drag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"byteGiftAPI/internal/session"
	"byteGiftAPI/internal/types/board"
)

func setup(t *testing.T, p board.Payload, at board.Point) (*session.Session, *Controller, board.Item) {
	t.Helper()
	s := session.New()
	item, err := s.Create(p, at)
	require.NoError(t, err)
	return s, NewController(s), item
}

func TestDragCommitsLastMoveMinusOffset(t *testing.T) {
	s, c, item := setup(t, board.Photo{ImageURL: "/uploads/a.jpg"}, board.Point{X: 100, Y: 100})

	require.True(t, c.PointerDown(item.ID, board.Point{X: 110, Y: 130}, TargetItem))
	assert.Equal(t, Dragging, c.State())

	moves := []board.Point{{X: 120, Y: 140}, {X: 300, Y: 20}, {X: 250, Y: 260}}
	for _, m := range moves {
		pos, ok := c.PointerMove(m)
		require.True(t, ok)
		got, _ := s.Item(item.ID)
		assert.Equal(t, pos, got.Position, "position is written through on every move")
	}

	rel, ok := c.PointerUp()
	require.True(t, ok)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, board.Point{X: 240, Y: 230}, rel.Position)
	assert.True(t, rel.Dragged)

	got, _ := s.Item(item.ID)
	assert.Equal(t, board.Point{X: 240, Y: 230}, got.Position)
	assert.Equal(t, item.Rotation, got.Rotation)
}

func TestPointerDownPromotesOncePerInteraction(t *testing.T) {
	s, c, item := setup(t, board.Photo{ImageURL: "u"}, board.Point{})
	before := s.HighestZIndex()

	require.True(t, c.PointerDown(item.ID, board.Point{}, TargetItem))
	for i := 0; i < 10; i++ {
		c.PointerMove(board.Point{X: float64(i), Y: float64(i)})
	}
	c.PointerUp()

	assert.Equal(t, before+1, s.HighestZIndex())
	got, _ := s.Item(item.ID)
	assert.Equal(t, before+1, got.ZIndex)
}

func TestInteractiveTargetDoesNotStartDrag(t *testing.T) {
	s, c, item := setup(t, board.Note{}, board.Point{X: 10, Y: 10})
	before := s.HighestZIndex()

	for _, target := range []Target{TargetTextarea, TargetInput, TargetButton} {
		assert.False(t, c.PointerDown(item.ID, board.Point{X: 12, Y: 12}, target))
	}
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, before, s.HighestZIndex())

	_, ok := c.PointerMove(board.Point{X: 90, Y: 90})
	assert.False(t, ok)
}

func TestDragSuppressesExactlyOneClick(t *testing.T) {
	_, c, item := setup(t, board.Note{}, board.Point{X: 0, Y: 0})

	c.PointerDown(item.ID, board.Point{X: 5, Y: 5}, TargetItem)
	c.PointerMove(board.Point{X: 25, Y: 5})
	rel, _ := c.PointerUp()
	require.True(t, rel.Dragged)

	assert.False(t, c.Click(item.ID), "click right after a drag is swallowed")
	assert.True(t, c.Click(item.ID), "a later click goes through")
}

func TestJitterDoesNotSuppressClick(t *testing.T) {
	s, c, item := setup(t, board.Note{}, board.Point{X: 50, Y: 50})

	c.PointerDown(item.ID, board.Point{X: 60, Y: 60}, TargetItem)
	c.PointerMove(board.Point{X: 63, Y: 55})
	rel, _ := c.PointerUp()
	assert.False(t, rel.Dragged)

	before := s.HighestZIndex()
	assert.True(t, c.Click(item.ID))
	assert.Equal(t, before+1, s.HighestZIndex(), "clicking a note promotes it")
}

func TestSuppressionClearedByNextPointerDown(t *testing.T) {
	_, c, item := setup(t, board.Photo{ImageURL: "u"}, board.Point{})

	c.PointerDown(item.ID, board.Point{}, TargetItem)
	c.PointerMove(board.Point{X: 50, Y: 0})
	c.PointerUp()

	c.PointerDown(item.ID, board.Point{X: 50, Y: 0}, TargetItem)
	c.PointerUp()
	assert.True(t, c.Click(item.ID))
}

func TestClickOnNonNoteDoesNotPromote(t *testing.T) {
	s, c, item := setup(t, board.Photo{ImageURL: "u"}, board.Point{})
	before := s.HighestZIndex()

	assert.True(t, c.Click(item.ID))
	assert.Equal(t, before, s.HighestZIndex())
	assert.False(t, c.Click("missing"))
}

func TestCancelCommitsWithoutSuppression(t *testing.T) {
	s, c, item := setup(t, board.Photo{ImageURL: "u"}, board.Point{X: 10, Y: 10})

	c.PointerDown(item.ID, board.Point{X: 10, Y: 10}, TargetItem)
	c.PointerMove(board.Point{X: 200, Y: 200})
	rel, ok := c.Cancel()
	require.True(t, ok)
	assert.False(t, rel.Dragged)
	assert.Equal(t, Idle, c.State())

	got, _ := s.Item(item.ID)
	assert.Equal(t, board.Point{X: 200, Y: 200}, got.Position)
	assert.True(t, c.Click(item.ID))

	_, ok = c.Cancel()
	assert.False(t, ok)
}

func TestItemRemovedMidDrag(t *testing.T) {
	s, c, item := setup(t, board.Photo{ImageURL: "u"}, board.Point{})

	c.PointerDown(item.ID, board.Point{}, TargetItem)
	s.RemoveItem(item.ID)

	assert.NotPanics(t, func() {
		c.PointerMove(board.Point{X: 30, Y: 30})
		c.PointerUp()
	})
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, 0, s.Len())
}

func TestPointerDownWhileDraggingDropsPrevious(t *testing.T) {
	s := session.New()
	a, _ := s.Create(board.Photo{ImageURL: "a"}, board.Point{})
	b, _ := s.Create(board.Photo{ImageURL: "b"}, board.Point{X: 100, Y: 100})
	c := NewController(s)

	c.PointerDown(a.ID, board.Point{}, TargetItem)
	c.PointerMove(board.Point{X: 40, Y: 40})
	require.True(t, c.PointerDown(b.ID, board.Point{X: 100, Y: 100}, TargetItem))
	assert.Equal(t, b.ID, c.ItemID())

	got, _ := s.Item(a.ID)
	assert.Equal(t, board.Point{X: 40, Y: 40}, got.Position)
}
