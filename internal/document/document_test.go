package document

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"inventory-service/internal/models"
)

func TestHasRightToLeft(t *testing.T) {
	assert.True(t, HasRightToLeft("abc שלום"))
	assert.True(t, HasRightToLeft("مرحبا"))
	assert.False(t, HasRightToLeft("Juan Pérez 123"))
	assert.False(t, HasRightToLeft(""))
}

func TestVisualOrder(t *testing.T) {
	cases := map[string]string{
		"abc שלום":   "abc םולש",
		"שלום 123":   "123 םולש",
		"plain text": "plain text",
		"שלום (א)":   "(א) םולש",
		"":           "",
	}
	for in, want := range cases {
		assert.Equal(t, want, VisualOrder(in), in)
	}
}

func TestJoinArabic(t *testing.T) {
	// ب ب ب -> inicial, media, final
	assert.Equal(t, "\uFE91\uFE92\uFE90", JoinArabic("ببب"))
	// د no se une hacia adelante
	assert.Equal(t, "\uFEA9\uFE8F", JoinArabic("دب"))
	// lam-alef
	assert.Equal(t, "\uFEFB", JoinArabic("لا"))
	assert.Equal(t, "\uFE91\uFEFC", JoinArabic("بلا"))
	// diacrítico transparente
	assert.Equal(t, "\uFE91\u064E\uFE90", JoinArabic("بَب"))
	assert.Equal(t, "abc", JoinArabic("abc"))
}

func TestBidiShaperArabic(t *testing.T) {
	// سلام: س inicial, lam-alef final, م aislada; luego orden visual invertido
	assert.Equal(t, "\uFEE1\uFEFC\uFEB3", BidiShaper{}.Shape("سلام"))
}

func testSale(lines int) *models.Sale {
	sale := &models.Sale{
		ID:        42,
		CreatedAt: time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
		Username:  "clerk",
		Customer:  models.Customer{Name: "ACME", Phone: "555-1234", Notes: "deliver\nmonday"},
	}
	for i := 0; i < lines; i++ {
		line, _ := models.NewSaleLine("P-100", "Widget", 3, models.Money(500))
		sale.Lines = append(sale.Lines, line)
	}
	sale.Total, _ = sale.LinesTotal()
	return sale
}

func newTestRenderer() *Renderer {
	return NewRenderer(Options{Title: "Quotation", Footer: "Generated by inventory-service"}, NoFontResolver{}, nil, zap.NewNop())
}

func TestRenderToLayout(t *testing.T) {
	sink := &RecordingSink{}
	require.NoError(t, newTestRenderer().RenderTo(testSale(1), sink))

	texts := sink.Texts()
	assert.Equal(t, "Quotation", texts[0])
	assert.Contains(t, texts, "User: clerk")
	assert.Contains(t, texts, "Customer:")
	assert.Contains(t, texts, "ACME")
	assert.Contains(t, texts, "555-1234")
	assert.Contains(t, texts, "Part #")
	assert.Contains(t, texts, "Subtotal")
	assert.Contains(t, texts, "15.00")
	assert.Contains(t, texts, "Total:")
	assert.Equal(t, 1, sink.Pages)
	assert.True(t, strings.HasPrefix(texts[len(texts)-1], "Generated by inventory-service"))
}

func TestRenderPageBreakRepeatsHeader(t *testing.T) {
	sink := &RecordingSink{}
	require.NoError(t, newTestRenderer().RenderTo(testSale(80), sink))

	assert.Greater(t, sink.Pages, 1)

	titles, headers := 0, 0
	for _, text := range sink.Texts() {
		switch text {
		case "Quotation":
			titles++
		case "Part #":
			headers++
		}
	}
	assert.Equal(t, sink.Pages, titles)
	assert.Equal(t, sink.Pages, headers)

	for _, op := range sink.Ops {
		if op.Kind == "text" && op.Text == "Widget" {
			assert.LessOrEqual(t, op.Y+op.H, pageHeight-bottomMargin)
		}
	}
}

func TestRenderRTLWithoutFontKeepsRawText(t *testing.T) {
	sale := testSale(1)
	sale.Customer.Name = "שלום עולם"

	sink := &RecordingSink{}
	require.NoError(t, newTestRenderer().RenderTo(sale, sink))
	assert.Contains(t, sink.Texts(), "שלום עולם")

	data, err := newTestRenderer().Render(sale)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRenderRTLWithFontShapes(t *testing.T) {
	sale := testSale(1)
	sale.Customer.Name = "abc שלום"

	sink := &RecordingSink{Unicode: true}
	require.NoError(t, newTestRenderer().RenderTo(sale, sink))

	var found bool
	for _, op := range sink.Ops {
		if op.Text == "abc םולש" {
			found = true
			assert.True(t, op.Style.Unicode)
		}
	}
	assert.True(t, found)
}

func TestRenderInvalidFontDegrades(t *testing.T) {
	r := NewRenderer(Options{}, StaticFontResolver{Font: &Font{Name: "broken.ttf", Data: []byte("not a font")}}, nil, zap.NewNop())
	sale := testSale(2)
	sale.Customer.Name = "مرحبا"

	data, err := r.Render(sale)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRenderIsDeterministic(t *testing.T) {
	r := newTestRenderer()
	a, err := r.Render(testSale(5))
	require.NoError(t, err)
	b, err := r.Render(testSale(5))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDirFontResolver(t *testing.T) {
	empty := t.TempDir()
	withFont := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(withFont, "Amiri-Regular.ttf"), []byte("font-bytes"), 0o644))

	font, err := NewDirFontResolver([]string{filepath.Join(empty, "missing"), empty}).Resolve()
	require.NoError(t, err)
	assert.Nil(t, font)

	font, err = NewDirFontResolver([]string{empty, withFont}).Resolve()
	require.NoError(t, err)
	require.NotNil(t, font)
	assert.Equal(t, "Amiri-Regular.ttf", font.Name)

	font, err = NoFontResolver{}.Resolve()
	assert.NoError(t, err)
	assert.Nil(t, font)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "docs"))

	path, err := store.Save(ctx, "quote_1_20240305_143000.pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)
	assert.Equal(t, "quote_1_20240305_143000.pdf", filepath.Base(path))

	data, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.3"), data)

	_, err = store.Save(ctx, "../escape.pdf", nil)
	assert.Error(t, err)

	_, err = store.Load(ctx, "/etc/passwd")
	assert.Error(t, err)
}
