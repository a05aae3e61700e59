package document

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"inventory-service/internal/models"
)

// Medidas de página A4 en mm
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	marginLeft   = 20.0
	marginRight  = 190.0
	bandHeight   = 18.0
	bottomMargin = 40.0
	rowHeight    = 6.0
	footerOffset = 10.0

	maxDescriptionRunes = 42
)

// columnas de la tabla de líneas
var columns = []struct {
	title string
	x     float64
	align Align
}{
	{"Part #", 20, AlignLeft},
	{"Description", 60, AlignLeft},
	{"Qty", 135, AlignRight},
	{"Price", 155, AlignRight},
	{"Subtotal", 175, AlignRight},
}

const numericWidth = 15.0

type Options struct {
	Title  string
	Footer string
}

// Renderer genera el documento de una venta; nunca modifica el ledger
type Renderer struct {
	opts   Options
	fonts  FontResolver
	shaper Shaper
	logger *zap.Logger

	fontOnce sync.Once
	font     *Font
}

// NewRenderer fonts puede ser nil (equivale a NoFontResolver)
func NewRenderer(opts Options, fonts FontResolver, shaper Shaper, logger *zap.Logger) *Renderer {
	if opts.Title == "" {
		opts.Title = "Quotation"
	}
	if fonts == nil {
		fonts = NoFontResolver{}
	}
	if shaper == nil {
		shaper = BidiShaper{}
	}
	return &Renderer{opts: opts, fonts: fonts, shaper: shaper, logger: logger}
}

// resolveFont resuelve y valida la fuente una sola vez; una fuente inválida se descarta
func (r *Renderer) resolveFont() *Font {
	r.fontOnce.Do(func() {
		font, err := r.fonts.Resolve()
		if err != nil {
			r.logger.Warn("⚠️ No se pudo resolver fuente RTL", zap.Error(err))
			return
		}
		if font == nil {
			r.logger.Info("ℹ️ Sin fuente RTL, el texto RTL se dibujará sin formato")
			return
		}
		if err := ProbeFont(font); err != nil {
			r.logger.Warn("⚠️ Fuente RTL descartada", zap.String("font", font.Name), zap.Error(err))
			return
		}
		r.logger.Info("✅ Fuente RTL cargada", zap.String("font", font.Name))
		r.font = font
	})
	return r.font
}

// Render genera el PDF de la venta
func (r *Renderer) Render(sale *models.Sale) ([]byte, error) {
	sink := NewPDFSink(r.resolveFont(), sale.CreatedAt)
	if err := r.RenderTo(sale, sink); err != nil {
		return nil, err
	}
	return sink.Finish()
}

type layout struct {
	r    *Renderer
	sink Sink
	sale *models.Sale
	y    float64
	page int
}

// RenderTo dibuja la venta sobre sink sin finalizarlo
func (r *Renderer) RenderTo(sale *models.Sale, sink Sink) error {
	if sale == nil {
		return fmt.Errorf("nil sale")
	}

	l := &layout{r: r, sink: sink, sale: sale}
	l.newPage()
	l.meta()
	l.customer()
	l.tableHeader()

	for _, line := range sale.Lines {
		if l.y+rowHeight > pageHeight-bottomMargin {
			l.footer()
			l.newPage()
			l.tableHeader()
		}
		l.row(line)
	}

	if l.y+3*rowHeight > pageHeight-bottomMargin {
		l.footer()
		l.newPage()
	}
	l.total()
	l.footer()
	return nil
}

// text prepara un campo: los campos RTL pasan por el shaper solo si hay fuente que los dibuje
func (l *layout) text(x, y, w, h float64, value string, style TextStyle) {
	if HasRightToLeft(value) && l.sink.UnicodeFont() {
		value = l.r.shaper.Shape(value)
		style.Unicode = true
	}
	l.sink.Text(x, y, w, h, value, style)
}

func (l *layout) newPage() {
	l.sink.NewPage()
	l.page++

	l.sink.Rect(0, 0, pageWidth, bandHeight, 230)
	l.text(0, 0, pageWidth, bandHeight, l.r.opts.Title, TextStyle{Size: 14, Bold: true, Align: AlignCenter})
	l.y = bandHeight + 8
}

func (l *layout) meta() {
	created := l.sale.CreatedAt.Format("2006-01-02 15:04")
	l.text(marginLeft, l.y, 80, rowHeight, "Date: "+created, TextStyle{Size: 10})
	l.text(marginRight-80, l.y, 80, rowHeight, "User: "+l.sale.Username, TextStyle{Size: 10, Align: AlignRight})
	l.sink.Text(marginRight-80, l.y+rowHeight, 80, rowHeight, fmt.Sprintf("Quote #%d", l.sale.ID), TextStyle{Size: 10, Align: AlignRight})
	l.y += 2*rowHeight + 2
}

func (l *layout) customer() {
	c := l.sale.Customer
	l.sink.Text(marginLeft, l.y, 40, rowHeight, "Customer:", TextStyle{Size: 11, Bold: true})
	l.y += rowHeight

	parts := []string{}
	for _, p := range []string{c.Name, c.Phone} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		// cada campo se prepara por separado para no mezclar direcciones
		x := marginLeft
		for i, p := range parts {
			if i > 0 {
				l.sink.Text(x, l.y, 8, rowHeight, "|", TextStyle{Size: 10, Align: AlignCenter})
				x += 8
			}
			l.text(x, l.y, 80, rowHeight, p, TextStyle{Size: 10})
			x += 80
		}
		l.y += rowHeight
	}

	for _, note := range strings.Split(strings.TrimSpace(c.Notes), "\n") {
		if note = strings.TrimSpace(note); note == "" {
			continue
		}
		l.text(marginLeft, l.y, marginRight-marginLeft, rowHeight, truncate(note, 100), TextStyle{Size: 9, Gray: true})
		l.y += rowHeight - 1
	}
	l.y += 4
}

func (l *layout) tableHeader() {
	for _, col := range columns {
		w := numericWidth
		if col.align == AlignLeft {
			w = 38
		}
		l.sink.Text(col.x, l.y, w, rowHeight, col.title, TextStyle{Size: 10, Bold: true, Align: col.align})
	}
	l.y += rowHeight
	l.sink.Line(marginLeft, l.y, marginRight, l.y)
	l.y += 1
}

func (l *layout) row(line models.SaleLine) {
	style := TextStyle{Size: 9}
	l.text(columns[0].x, l.y, 38, rowHeight, truncate(line.PartNumber, 20), style)
	l.text(columns[1].x, l.y, 73, rowHeight, truncate(line.Description, maxDescriptionRunes), style)

	num := TextStyle{Size: 9, Align: AlignRight}
	l.sink.Text(columns[2].x, l.y, numericWidth, rowHeight, fmt.Sprintf("%d", line.Qty), num)
	l.sink.Text(columns[3].x, l.y, numericWidth, rowHeight, line.UnitPrice.Grouped(), num)
	l.sink.Text(columns[4].x, l.y, numericWidth, rowHeight, line.Subtotal.Grouped(), num)
	l.y += rowHeight
}

func (l *layout) total() {
	l.y += 2
	l.sink.Line(columns[3].x, l.y, marginRight, l.y)
	l.y += 2
	l.sink.Text(columns[3].x-20, l.y, 20+numericWidth, rowHeight, "Total:", TextStyle{Size: 11, Bold: true, Align: AlignRight})
	l.sink.Text(columns[4].x, l.y, numericWidth, rowHeight, l.sale.Total.Grouped(), TextStyle{Size: 11, Bold: true, Align: AlignRight})
	l.y += rowHeight
}

func (l *layout) footer() {
	y := pageHeight - footerOffset - rowHeight/2
	text := fmt.Sprintf("Page %d", l.page)
	if l.r.opts.Footer != "" {
		text = l.r.opts.Footer + "  -  " + text
	}
	l.text(0, y, pageWidth, rowHeight, text, TextStyle{Size: 9, Gray: true, Align: AlignCenter})
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
