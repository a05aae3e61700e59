package document

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	coreFamily    = "Helvetica"
	unicodeFamily = "rtl"
)

// PDFSink dibuja sobre un documento fpdf A4 en mm
type PDFSink struct {
	pdf       *fpdf.Fpdf
	unicode   bool
	translate func(string) string
}

// NewPDFSink font puede ser nil; created fija la fecha de creación para que la salida sea determinista
func NewPDFSink(font *Font, created time.Time) *PDFSink {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(created)
	pdf.SetProducer("inventory-service", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	sink := &PDFSink{
		pdf:       pdf,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}

	if font != nil {
		pdf.AddUTF8FontFromBytes(unicodeFamily, "", font.Data)
		pdf.AddUTF8FontFromBytes(unicodeFamily, "B", font.Data)
		sink.unicode = pdf.Ok()
	}
	return sink
}

// ProbeFont verifica que fpdf pueda cargar y usar la fuente
func ProbeFont(font *Font) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("font %s unusable: %v", font.Name, r)
		}
	}()

	probe := fpdf.New("P", "mm", "A4", "")
	probe.AddUTF8FontFromBytes(unicodeFamily, "", font.Data)
	probe.AddPage()
	probe.SetFont(unicodeFamily, "", 10)
	probe.CellFormat(10, 10, "abc", "", 0, "L", false, 0, "")

	var buf bytes.Buffer
	if err := probe.Output(&buf); err != nil {
		return fmt.Errorf("font %s unusable: %w", font.Name, err)
	}
	return nil
}

func (s *PDFSink) NewPage() {
	s.pdf.AddPage()
}

func (s *PDFSink) Rect(x, y, w, h float64, gray int) {
	s.pdf.SetFillColor(gray, gray, gray)
	s.pdf.Rect(x, y, w, h, "F")
}

func (s *PDFSink) Line(x1, y1, x2, y2 float64) {
	s.pdf.SetDrawColor(0, 0, 0)
	s.pdf.SetLineWidth(0.2)
	s.pdf.Line(x1, y1, x2, y2)
}

func (s *PDFSink) Text(x, y, w, h float64, text string, style TextStyle) {
	fontStyle := ""
	if style.Bold {
		fontStyle = "B"
	}

	if style.Unicode && s.unicode {
		s.pdf.SetFont(unicodeFamily, fontStyle, style.Size)
	} else {
		s.pdf.SetFont(coreFamily, fontStyle, style.Size)
		text = s.translate(text)
	}

	if style.Gray {
		s.pdf.SetTextColor(110, 110, 110)
	} else {
		s.pdf.SetTextColor(0, 0, 0)
	}

	align := style.Align
	if align == "" {
		align = AlignLeft
	}
	s.pdf.SetXY(x, y)
	s.pdf.CellFormat(w, h, text, "", 0, string(align)+"M", false, 0, "")
}

func (s *PDFSink) UnicodeFont() bool {
	return s.unicode
}

func (s *PDFSink) Finish() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
