package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"PeerBoard/internal/state"
)

const (
	eraserInk   = "#ffffff"
	eraserWidth = 20.0
	maxWidth    = 50.0
)

var palette = []string{"#000000", "#ff0000", "#00ff00", "#0000ff", "#ffff00"}

type colorSwatch struct {
	widget.BaseWidget
	hex      string
	OnTapped func(hex string)
}

func newColorSwatch(hex string, tapped func(string)) *colorSwatch {
	s := &colorSwatch{hex: hex, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(state.MustColor(s.hex))
	rect.SetMinSize(fyne.NewSize(32, 32))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.hex)
	}
}

// Actions are the toolbar buttons that reach beyond the board itself.
type Actions struct {
	Clear  func()
	Export func()
}

// NewToolbar builds the pen, eraser, palette and width controls for board.
// The participant's own color leads the palette.
func NewToolbar(board *Board, own string, actions Actions) fyne.CanvasObject {
	lastInk := board.Ink()

	tools := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentCreateIcon(), func() {
			board.SetInk(lastInk)
			if board.StrokeWidth() >= eraserWidth {
				board.SetStrokeWidth(2)
			}
		}),
		widget.NewToolbarAction(theme.ContentRemoveIcon(), func() {
			board.SetInk(eraserInk)
			board.SetStrokeWidth(eraserWidth)
		}),
	)

	onColor := func(hex string) {
		lastInk = hex
		board.SetInk(hex)
	}
	swatches := container.NewHBox()
	for _, hex := range append([]string{own}, palette...) {
		swatches.Add(newColorSwatch(hex, onColor))
	}

	width := widget.NewSlider(1, maxWidth)
	width.SetValue(board.StrokeWidth())
	width.OnChanged = board.SetStrokeWidth
	sized := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), width)

	session := widget.NewToolbar(
		widget.NewToolbarAction(theme.DeleteIcon(), actions.Clear),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), actions.Export),
	)

	return container.NewHBox(
		widget.NewLabel("Tool:"),
		tools,
		widget.NewSeparator(),
		widget.NewLabel("Color:"),
		swatches,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		sized,
		layout.NewSpacer(),
		session,
	)
}
