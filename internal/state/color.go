package state

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

const DefaultInk = "#000000"

// ParseColor accepts "#rrggbb" (or the short "#rgb") and returns the opaque color.
func ParseColor(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// MustColor is ParseColor for renderers: invalid input falls back to black ink.
func MustColor(hex string) color.NRGBA {
	c, err := ParseColor(hex)
	if err != nil {
		return color.NRGBA{A: 255}
	}
	return c
}

// RandomColor picks a readable display color for a participant.
func RandomColor() string {
	return colorful.FastHappyColor().Hex()
}

// NormalizeColor lowercases and expands a color to "#rrggbb".
func NormalizeColor(hex string) (string, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return "", fmt.Errorf("invalid color %q: %w", hex, err)
	}
	return c.Hex(), nil
}
