package utils

import (
	"math/rand/v2"

	"byteGiftAPI/internal/types/board"
)

const (
	DefaultCanvasWidth  = 1280.0
	DefaultCanvasHeight = 800.0

	minEdge = 50.0
)

// RandomPosition picks a spot for a freshly added item so it lands inside
// the visible part of a canvas of the given size. Non-positive sizes fall
// back to the defaults.
func RandomPosition(width, height float64) board.Point {
	if width <= 0 {
		width = DefaultCanvasWidth
	}
	if height <= 0 {
		height = DefaultCanvasHeight
	}
	return board.Point{
		X: max(minEdge, rand.Float64()*(width-200)),
		Y: max(minEdge, rand.Float64()*(height-400)),
	}
}
