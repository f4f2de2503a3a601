// Package export writes a board out to a PDF document.
package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	"PeerBoard/internal/state"
)

const margin = 10.0 // mm

// PDF is a surface that paints onto an A4 landscape document, scaling the
// board's viewport to fit the printable area.
type PDF struct {
	doc    *gofpdf.Fpdf
	scale  float64
	width  float64
	height float64
	dirty  bool
}

// NewPDF prepares a document for a board of width x height pixels.
func NewPDF(width, height float64) *PDF {
	doc := gofpdf.New("L", "mm", "A4", "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(false, 0)
	doc.SetLineCapStyle("round")
	doc.AddPage()

	pw, ph := doc.GetPageSize()
	scale := 1.0
	if width > 0 && height > 0 {
		scale = math.Min((pw-2*margin)/width, (ph-2*margin)/height)
	}
	return &PDF{doc: doc, scale: scale, width: width, height: height}
}

func (p *PDF) DrawSegment(from, to state.Point, color string, width float64) {
	c, err := state.ParseColor(color)
	if err != nil {
		c = state.MustColor(state.DefaultInk)
	}
	p.doc.SetDrawColor(int(c.R), int(c.G), int(c.B))
	p.doc.SetLineWidth(width * p.scale)
	p.doc.Line(margin+from.X*p.scale, margin+from.Y*p.scale, margin+to.X*p.scale, margin+to.Y*p.scale)
	p.dirty = true
}

// ClearAll starts a fresh page, unless the current one is still blank.
func (p *PDF) ClearAll() {
	if !p.dirty {
		return
	}
	p.doc.AddPage()
	p.dirty = false
}

func (p *PDF) ViewportSize() (float64, float64) {
	return p.width, p.height
}

func (p *PDF) Pages() int {
	return p.doc.PageCount()
}

func (p *PDF) WriteTo(w io.Writer) error {
	return p.doc.Output(w)
}

// Write renders ops into a PDF at path.
func Write(path string, ops []state.Operation, width, height float64) error {
	p := NewPDF(width, height)
	state.Render(ops, p)
	if err := p.doc.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}

// Save writes ops to a new, timestamped PDF in dir and returns its path.
func Save(dir, sessionID string, ops []state.Operation, width, height float64) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	path := FileName(dir, sessionID, time.Now())
	if err := Write(path, ops, width, height); err != nil {
		return "", err
	}
	return path, nil
}

// FileName builds the default export path for a session inside dir.
func FileName(dir, sessionID string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("peerboard-%s-%s.pdf", sessionID, at.Format("20060102-150405")))
}

var _ state.Surface = (*PDF)(nil)
