// Package ui is the desktop client: a fyne window around one session.
package ui

import (
	"bytes"
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog/log"

	"PeerBoard/internal/export"
	"PeerBoard/internal/session"
	"PeerBoard/internal/share"
	"PeerBoard/internal/state"
)

const qrSize = 192

// Window shows one session: the board, its participants and the share link.
type Window struct {
	win       fyne.Window
	sess      *session.Session
	board     *Board
	exportDir string

	roster []state.Participant
	colors map[string]string
	self   state.Participant
	list   *widget.List
	status *widget.Label
	ended  bool
}

// NewWindow wires board input to sess. The board must be the surface the
// session was started with.
func NewWindow(app fyne.App, sess *session.Session, board *Board, exportDir string) *Window {
	w := &Window{
		win:       app.NewWindow("PeerBoard " + sess.ID()),
		sess:      sess,
		board:     board,
		exportDir: exportDir,
		colors:    make(map[string]string),
		status:    widget.NewLabel("Connected"),
	}
	w.win.Resize(fyne.NewSize(1200, 800))
	w.win.SetMaster()
	if self, err := sess.Self(); err == nil {
		w.self = self
		w.roster = []state.Participant{self}
		board.SetInk(self.Color)
	}

	board.OnSegment = func(from, to state.Point, color string, width float64) {
		if err := sess.Draw(from, to, color, width); err != nil && !errors.Is(err, session.ErrSessionEnded) {
			w.setStatus(err.Error())
		}
	}
	board.OnCursor = sess.Cursor

	toolbar := NewToolbar(board, w.self.Color, Actions{Clear: w.clear, Export: w.export})
	w.list = w.rosterList()
	side := container.NewBorder(w.sharePanel(), nil, nil, nil, w.list)
	split := container.NewHSplit(board, side)
	split.Offset = 0.8

	w.win.SetContent(container.NewBorder(toolbar, w.status, nil, nil, split))
	w.win.SetOnClosed(func() {
		go sess.Leave()
	})
	return w
}

// Show displays the window and starts following session updates.
func (w *Window) Show() {
	go w.follow()
	w.win.Show()
}

func (w *Window) follow() {
	for u := range w.sess.Updates() {
		fyne.Do(func() { w.apply(u) })
	}
	fyne.Do(func() {
		if !w.ended {
			w.apply(session.Update{Kind: session.UpdateEnded, Text: w.sess.EndReason()})
		}
	})
}

func (w *Window) apply(u session.Update) {
	switch u.Kind {
	case session.UpdateRoster:
		w.roster = u.Roster
		keep := make(map[string]bool, len(u.Roster))
		for _, p := range u.Roster {
			keep[p.ID] = true
			w.colors[p.ID] = p.Color
			if p.ID == w.self.ID {
				w.self = p
			}
		}
		w.board.PruneCursors(keep)
		w.list.Refresh()
	case session.UpdateNotice:
		w.setStatus(u.Text)
	case session.UpdateCursor:
		w.board.ShowCursor(u.From, u.Position, w.colors[u.From])
	case session.UpdateRole:
		w.self.Role = u.Role
		w.setStatus(fmt.Sprintf("You are now %s", u.Role))
		w.list.Refresh()
	case session.UpdateEnded:
		if w.ended {
			return
		}
		w.ended = true
		w.setStatus(u.Text)
		d := dialog.NewInformation("Session ended", u.Text, w.win)
		d.SetOnClosed(w.win.Close)
		d.Show()
	}
}

func (w *Window) setStatus(text string) {
	w.status.SetText(text)
}

func (w *Window) clear() {
	go func() {
		err := w.sess.Clear()
		if errors.Is(err, session.ErrNotPermitted) {
			fyne.Do(func() { w.setStatus("Only the host or an admin can clear the board") })
		} else if err != nil {
			fyne.Do(func() { w.setStatus(err.Error()) })
		}
	}()
}

func (w *Window) export() {
	go func() {
		path, err := Export(w.sess, w.board, w.exportDir)
		fyne.Do(func() {
			if err != nil {
				dialog.ShowError(err, w.win)
				return
			}
			w.setStatus("Saved " + path)
		})
	}()
}

// Export writes the current board of sess to a new PDF in dir.
func Export(sess *session.Session, surface state.Surface, dir string) (string, error) {
	ops, err := sess.History()
	if err != nil {
		return "", err
	}
	width, height := surface.ViewportSize()
	path, err := export.Save(dir, sess.ID(), ops, width, height)
	if err != nil {
		return "", err
	}
	log.Info().Str("path", path).Int("ops", len(ops)).Msg("board exported")
	return path, nil
}

func (w *Window) sharePanel() fyne.CanvasObject {
	link := w.sess.Link()
	code := widget.NewLabelWithStyle(link.SessionID, fyne.TextAlignCenter, fyne.TextStyle{Bold: true, Monospace: true})
	entry := widget.NewEntry()
	entry.SetText(link.String())
	entry.Disable()
	copyLink := widget.NewButton("Copy link", func() {
		w.win.Clipboard().SetContent(link.String())
		w.setStatus("Link copied")
	})
	items := []fyne.CanvasObject{widget.NewLabel("Session code"), code, entry, copyLink}

	png, err := share.QRCode(link, qrSize)
	if err != nil {
		log.Warn().Err(err).Msg("no QR code for share link")
	} else {
		img := canvas.NewImageFromReader(bytes.NewReader(png), "peerboard-link.png")
		img.FillMode = canvas.ImageFillContain
		img.SetMinSize(fyne.NewSquareSize(qrSize))
		items = append(items, img)
	}
	items = append(items, widget.NewSeparator(), widget.NewLabel("Participants"))
	return container.NewVBox(items...)
}

func (w *Window) rosterList() *widget.List {
	return widget.NewList(
		func() int { return len(w.roster) },
		func() fyne.CanvasObject {
			return container.NewHBox(
				swatch(state.DefaultInk),
				widget.NewLabel("name"),
				widget.NewButton("Promote", nil),
				widget.NewButton("Kick", nil),
			)
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			p := w.roster[i]
			row := o.(*fyne.Container)
			dot := row.Objects[0].(*canvas.Rectangle)
			dot.FillColor = state.MustColor(p.Color)
			dot.Refresh()

			label := p.Name + " (" + string(p.Role) + ")"
			if p.ID == w.self.ID {
				label += " - you"
			}
			row.Objects[1].(*widget.Label).SetText(label)

			promote := row.Objects[2].(*widget.Button)
			kick := row.Objects[3].(*widget.Button)
			if !w.sess.IsHost() || p.Role == state.RoleHost {
				promote.Hide()
				kick.Hide()
				return
			}
			promote.Show()
			kick.Show()
			id, name := p.ID, p.Name
			if p.Role == state.RoleAdmin {
				promote.SetText("Demote")
				promote.OnTapped = func() { w.moderate(w.sess.Demote, id) }
			} else {
				promote.SetText("Promote")
				promote.OnTapped = func() { w.moderate(w.sess.Promote, id) }
			}
			kick.OnTapped = func() {
				dialog.ShowConfirm("Remove participant", "Remove "+name+" from the session?", func(ok bool) {
					if ok {
						w.moderate(w.sess.Kick, id)
					}
				}, w.win)
			}
		},
	)
}

func (w *Window) moderate(action func(string) error, id string) {
	go func() {
		if err := action(id); err != nil {
			fyne.Do(func() { dialog.ShowError(err, w.win) })
		}
	}()
}

func swatch(hex string) *canvas.Rectangle {
	r := canvas.NewRectangle(state.MustColor(hex))
	r.SetMinSize(fyne.NewSquareSize(12))
	r.CornerRadius = 6
	return r
}
