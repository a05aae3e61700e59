// Package document genera el PDF de una venta confirmada a partir de instrucciones de dibujo.
package document

import (
	"bytes"
	"fmt"
)

type Align string

const (
	AlignLeft   Align = "L"
	AlignCenter Align = "C"
	AlignRight  Align = "R"
)

// TextStyle estilo de un texto; Unicode indica que debe usarse la fuente resuelta
type TextStyle struct {
	Size    float64
	Bold    bool
	Gray    bool
	Align   Align
	Unicode bool
}

// Sink recibe instrucciones de dibujo en mm con origen arriba a la izquierda
type Sink interface {
	NewPage()
	// Rect rectángulo relleno; gray 0-255
	Rect(x, y, w, h float64, gray int)
	Line(x1, y1, x2, y2 float64)
	// Text dibuja text dentro de la caja [x, x+w] x [y, y+h] con la alineación del estilo
	Text(x, y, w, h float64, text string, style TextStyle)
	// UnicodeFont true si hay una fuente capaz de dibujar escritura RTL
	UnicodeFont() bool
	Finish() ([]byte, error)
}

// Op instrucción registrada por RecordingSink
type Op struct {
	Kind  string
	X, Y  float64
	W, H  float64
	Text  string
	Style TextStyle
}

// RecordingSink guarda las instrucciones para inspeccionarlas
type RecordingSink struct {
	Ops     []Op
	Unicode bool
	Pages   int
}

func (s *RecordingSink) NewPage() {
	s.Pages++
	s.Ops = append(s.Ops, Op{Kind: "page"})
}

func (s *RecordingSink) Rect(x, y, w, h float64, gray int) {
	s.Ops = append(s.Ops, Op{Kind: "rect", X: x, Y: y, W: w, H: h})
}

func (s *RecordingSink) Line(x1, y1, x2, y2 float64) {
	s.Ops = append(s.Ops, Op{Kind: "line", X: x1, Y: y1, W: x2 - x1, H: y2 - y1})
}

func (s *RecordingSink) Text(x, y, w, h float64, text string, style TextStyle) {
	s.Ops = append(s.Ops, Op{Kind: "text", X: x, Y: y, W: w, H: h, Text: text, Style: style})
}

func (s *RecordingSink) UnicodeFont() bool {
	return s.Unicode
}

// Finish devuelve un volcado de texto de las instrucciones
func (s *RecordingSink) Finish() ([]byte, error) {
	var buf bytes.Buffer
	for _, op := range s.Ops {
		fmt.Fprintf(&buf, "%s %.1f %.1f %.1f %.1f %q\n", op.Kind, op.X, op.Y, op.W, op.H, op.Text)
	}
	return buf.Bytes(), nil
}

// Texts textos dibujados en orden
func (s *RecordingSink) Texts() []string {
	var out []string
	for _, op := range s.Ops {
		if op.Kind == "text" {
			out = append(out, op.Text)
		}
	}
	return out
}
