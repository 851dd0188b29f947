package receipt

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"print-bridge/internal/escpos"
	"print-bridge/internal/imaging"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func boolPtr(b bool) *bool {
	return &b
}

func sampleData() *ReceiptData {
	return &ReceiptData{
		ReceiptNumber: "R1",
		Date:          "2024-01-02",
		Time:          "10:00",
		StoreName:     "Shop",
		Items: []ReceiptItem{
			{ID: "1", Name: "Tea", Quantity: 2, Price: dec("1.5"), Total: dec("3")},
		},
		Subtotal:      dec("3"),
		Total:         dec("3"),
		PaymentMethod: "Cash",
		Currency:      "$",
	}
}

func narrowPrinter() PrinterSettings {
	return PrinterSettings{PaperWidth: 58, CharsPerLine: 20, FeedLines: 2, CutEnabled: true}
}

type stubLoader struct {
	bmp *imaging.Bitmap
	err error
	req imaging.LogoRequest
}

func (s *stubLoader) LoadLogo(_ context.Context, req imaging.LogoRequest) (*imaging.Bitmap, error) {
	s.req = req
	return s.bmp, s.err
}

func TestRenderByteSequence(t *testing.T) {
	r := NewRenderer(nil, zaptest.NewLogger(t))

	got, err := r.Render(context.Background(), sampleData(), &ReceiptSettings{}, narrowPrinter())
	require.NoError(t, err)

	div := strings.Repeat("-", 20)
	want := escpos.NewEncoder().
		Initialize().Align(escpos.AlignCenter).FontSelect(escpos.FontA).
		Size(2, 2).Bold(true).Text("Shop").Newline().Bold(false).Size(1, 1).
		Align(escpos.AlignLeft).Text(div).Newline().
		LeftRight("Receipt #:", "R1", 20).Newline().
		LeftRight("Date:", "2024-01-02", 20).Newline().
		LeftRight("Time:", "10:00", 20).Newline().
		Text(div).Newline().
		Align(escpos.AlignCenter).Text("--- ITEMS ---").Newline().
		Align(escpos.AlignLeft).LeftRight("2 x Tea", "$3.00", 20).Newline().
		Text(div).Newline().
		LeftRight("Subtotal:", "$3.00", 20).Newline().
		Bold(true).LeftRight("TOTAL:", "$3.00", 20).Newline().Bold(false).
		Text(div).Newline().
		LeftRight("Payment Method:", "Cash", 20).Newline().
		Feed(2).Cut().
		Bytes()

	assert.Equal(t, want, got)
}

func TestRenderIsDeterministic(t *testing.T) {
	r := NewRenderer(nil, zaptest.NewLogger(t))
	data := sampleData()
	data.QRCode = "https://example.com/r/1"
	data.Footer = "Thanks!"
	settings := &ReceiptSettings{ItemLayout: ItemLayoutStacked, PrinterFont: "B"}

	first, err := r.Render(context.Background(), data, settings, narrowPrinter())
	require.NoError(t, err)
	second, err := r.Render(context.Background(), data, settings, narrowPrinter())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, bytes.HasPrefix(first, []byte{0x1B, 0x40, 0x1B, 0x61, 0x01, 0x1B, 0x4D, 0x01}))
}

func countItemRows(doc *Document) int {
	n := 0
	for _, row := range doc.Rows {
		if row.Section == SectionItems && row.Kind != RowDivider && !strings.HasPrefix(row.Text, "--- ") {
			n++
		}
	}
	return n
}

func TestItemLayoutRowCounts(t *testing.T) {
	data := sampleData()
	data.Items = append(data.Items,
		ReceiptItem{Name: "Cake", Quantity: 1, Price: dec("4.25"), Total: dec("4.25")},
		ReceiptItem{Name: "Milk", Quantity: 3, Price: dec("1"), Total: dec("3")},
	)

	single := Layout(data, &ReceiptSettings{ItemLayout: ItemLayoutSingle}, narrowPrinter())
	stacked := Layout(data, &ReceiptSettings{ItemLayout: ItemLayoutStacked}, narrowPrinter())

	assert.Equal(t, 3, countItemRows(single))
	assert.Equal(t, 6, countItemRows(stacked))
}

func TestStackedItemRows(t *testing.T) {
	doc := Layout(sampleData(), &ReceiptSettings{ItemLayout: ItemLayoutStacked}, narrowPrinter())

	var rows []Row
	for _, row := range doc.Rows {
		if row.Section == SectionItems && row.Kind != RowDivider {
			rows = append(rows, row)
		}
	}
	require.Len(t, rows, 3)
	assert.Equal(t, "Tea", rows[1].Text)
	assert.True(t, rows[1].Bold)
	assert.Equal(t, "  2 x $1.50", rows[2].Left)
	assert.Equal(t, "$3.00", rows[2].Right)
}

func lines(doc *Document) []string {
	out := make([]string, 0, len(doc.Rows))
	for _, row := range doc.Rows {
		out = append(out, row.Line(doc.Width))
	}
	return out
}

func TestDisabledRowIsSuppressedRegardlessOfLabel(t *testing.T) {
	settings := &ReceiptSettings{
		DateLabel:       "Fecha",
		DateEnabled:     boolPtr(false),
		TimeEnabled:     boolPtr(true),
		ItemsEnabled:    boolPtr(false),
		SubtotalEnabled: boolPtr(false),
	}
	out := strings.Join(lines(Layout(sampleData(), settings, narrowPrinter())), "\n")

	assert.NotContains(t, out, "Fecha")
	assert.NotContains(t, out, "2024-01-02")
	assert.Contains(t, out, "Time:")
	assert.NotContains(t, out, "ITEMS")
	assert.NotContains(t, out, "Subtotal")
}

func TestBlankLabelFallsBackToDefault(t *testing.T) {
	settings := &ReceiptSettings{ReceiptIDLabel: "   ", TotalLabel: "Grand Total", CashierLabel: ""}
	data := sampleData()
	data.CashierName = "Ana"

	out := strings.Join(lines(Layout(data, settings, PresetFor(80))), "\n")

	assert.Contains(t, out, "Receipt #:")
	assert.Contains(t, out, "Grand Total:")
	assert.Contains(t, out, "Cashier:")
	assert.Equal(t, "Receipt #", settings.Label(LineReceiptID))
	assert.True(t, settings.Enabled(LineReceiptID))
}

func TestOptionalAmounts(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(d *ReceiptData)
		contains []string
		absent   []string
	}{
		{
			name:   "nil optional amounts",
			mutate: func(d *ReceiptData) {},
			absent: []string{"Discount", "Tax", "Amount Paid", "Change"},
		},
		{
			name: "zero discount and zero tax",
			mutate: func(d *ReceiptData) {
				d.Discount = decPtr("0")
				d.Tax = decPtr("0")
			},
			contains: []string{"Tax:"},
			absent:   []string{"Discount"},
		},
		{
			name: "discount rendered negative",
			mutate: func(d *ReceiptData) {
				d.Discount = decPtr("1.2")
			},
			contains: []string{"-$1.20"},
		},
		{
			name: "payment amounts",
			mutate: func(d *ReceiptData) {
				d.PaymentAmount = decPtr("5")
				d.ChangeAmount = decPtr("2")
			},
			contains: []string{"Amount Paid:", "$5.00", "Change:", "$2.00"},
		},
		{
			name: "zero change omitted",
			mutate: func(d *ReceiptData) {
				d.PaymentAmount = decPtr("3")
				d.ChangeAmount = decPtr("0")
			},
			contains: []string{"Amount Paid:"},
			absent:   []string{"Change"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := sampleData()
			tt.mutate(data)
			out := strings.Join(lines(Layout(data, &ReceiptSettings{}, PresetFor(80))), "\n")

			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSettingsOverrideFooterAndQR(t *testing.T) {
	data := sampleData()
	data.Footer = "data footer"
	data.QRCode = "data-qr"

	doc := Layout(data, &ReceiptSettings{FooterMessage: "Come back\nsoon", QRCodeData: "settings-qr"}, narrowPrinter())
	tail := doc.Rows[len(doc.Rows)-3:]

	assert.Equal(t, "Come back", tail[0].Text)
	assert.Equal(t, "soon", tail[1].Text)
	assert.Equal(t, escpos.AlignCenter, tail[0].Align)
	assert.Equal(t, RowQRCode, tail[2].Kind)
	assert.Equal(t, "settings-qr", tail[2].Text)

	doc = Layout(data, &ReceiptSettings{}, narrowPrinter())
	last := doc.Rows[len(doc.Rows)-1]
	assert.Equal(t, "data-qr", last.Text)
}

func TestDivider(t *testing.T) {
	assert.Equal(t, "========", divider("=", 8))
	assert.Equal(t, "--------", divider("", 8))
	assert.Equal(t, "----", divider("ab", 4))
	assert.Equal(t, "", divider("-", 0))

	doc := Layout(sampleData(), &ReceiptSettings{LineCharacter: "*"}, PresetFor(58))
	for _, row := range doc.Rows {
		if row.Kind == RowDivider {
			assert.Equal(t, strings.Repeat("*", 32), row.Text)
		}
	}
}

func TestReceiptNumberFromNumbering(t *testing.T) {
	data := sampleData()
	data.ReceiptNumber = ""

	out := strings.Join(lines(Layout(data, &ReceiptSettings{TransactionPrefix: "INV-", TransactionNext: 42}, PresetFor(80))), "\n")
	assert.Contains(t, out, "INV-42")

	out = strings.Join(lines(Layout(data, &ReceiptSettings{}, PresetFor(80))), "\n")
	assert.NotContains(t, out, "Receipt #")
}

func TestRenderFeedAndCut(t *testing.T) {
	r := NewRenderer(nil, zaptest.NewLogger(t))
	ps := narrowPrinter()

	withCut, err := r.Render(context.Background(), sampleData(), nil, ps)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(withCut, []byte{0x0A, 0x0A, 0x0A, 0x1D, 0x56, 0x42, 0x00}))

	ps.CutEnabled = false
	ps.FeedLines = 4
	noCut, err := r.Render(context.Background(), sampleData(), nil, ps)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(noCut, []byte{'h', 0x0A, 0x0A, 0x0A, 0x0A, 0x0A}))
	assert.False(t, bytes.Contains(noCut, []byte{0x1D, 0x56}))
}

func TestRenderLogo(t *testing.T) {
	data := sampleData()
	data.StoreLogo = "https://cdn.example.com/logo.png"
	data.BusinessID = "biz-9"
	data.BusinessUpdatedAt = "2024-05-01T00:00:00Z"
	settings := &ReceiptSettings{IncludeImage: true}

	loader := &stubLoader{bmp: &imaging.Bitmap{Data: []byte{0xFF, 0x00}, Width: 8, Height: 2}}
	r := NewRenderer(loader, zaptest.NewLogger(t))

	got, err := r.Render(context.Background(), data, settings, narrowPrinter())
	require.NoError(t, err)

	assert.True(t, bytes.Contains(got, []byte{0x1D, 0x76, 0x30, 0x00, 0x01, 0x00, 0x02, 0x00, 0xFF, 0x00}))
	assert.Equal(t, imaging.LogoRequest{
		Ref:      data.StoreLogo,
		OwnerID:  "biz-9",
		Version:  "2024-05-01T00:00:00Z",
		MaxWidth: 240,
	}, loader.req)
}

func TestRenderLogoFailureIsSwallowed(t *testing.T) {
	data := sampleData()
	data.StoreLogo = "https://cdn.example.com/missing.png"

	failing := &stubLoader{err: &imaging.ImageLoadError{Source: data.StoreLogo, Err: errors.New("404")}}
	r := NewRenderer(failing, zaptest.NewLogger(t))

	withLogo, err := r.Render(context.Background(), data, &ReceiptSettings{IncludeImage: true}, narrowPrinter())
	require.NoError(t, err)
	withoutLogo, err := r.Render(context.Background(), data, &ReceiptSettings{}, narrowPrinter())
	require.NoError(t, err)

	assert.Equal(t, withoutLogo, withLogo)
}

func TestRenderWarnsOnNonASCII(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := NewRenderer(nil, zap.New(core))

	data := sampleData()
	data.StoreName = "Café"

	_, err := r.Render(context.Background(), data, nil, narrowPrinter())
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessageSnippet("non-ASCII").Len())

	logs.TakeAll()
	ps := narrowPrinter()
	ps.Transcode = true
	ps.CharacterEncoding = "CP858"
	got, err := r.Render(context.Background(), data, nil, ps)
	require.NoError(t, err)
	assert.Zero(t, logs.Len())
	assert.True(t, bytes.Contains(got, []byte{'C', 'a', 'f', 0x82}))
}

func TestRenderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRenderer(nil, zaptest.NewLogger(t)).Render(ctx, sampleData(), nil, narrowPrinter())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreviewMatchesLayout(t *testing.T) {
	data := sampleData()
	data.StoreLogo = "https://cdn.example.com/logo.png"
	data.Footer = "Thanks <3"
	data.QRCode = "https://example.com/r/1"
	settings := &ReceiptSettings{IncludeImage: true, ItemLayout: ItemLayoutStacked}

	r := NewRenderer(nil, zaptest.NewLogger(t))
	html, err := r.RenderPreview(data, settings, narrowPrinter())
	require.NoError(t, err)

	doc := Layout(data, settings, narrowPrinter())
	assert.Equal(t, len(doc.Rows), strings.Count(html, `<div class="row `))

	assert.Contains(t, html, `src="https://cdn.example.com/logo.png"`)
	assert.Contains(t, html, `src="data:image/png;base64,`)
	assert.Contains(t, html, "Thanks &lt;3")
	assert.Contains(t, html, "Receipt #:")
	assert.Contains(t, html, "--- ITEMS ---")
	assert.Contains(t, html, "width:20ch")
}

func TestPrinterSettingsPresets(t *testing.T) {
	assert.Equal(t, 32, PresetFor(58).CharsPerLine)
	assert.Equal(t, 48, PresetFor(80).CharsPerLine)
	assert.Equal(t, 384, PresetFor(58).MaxLogoWidth())
	assert.Equal(t, 576, PresetFor(80).MaxLogoWidth())

	ps := PrinterSettings{PaperWidth: 58, FeedLines: -1}.Normalized()
	assert.Equal(t, 32, ps.CharsPerLine)
	assert.Zero(t, ps.FeedLines)

	custom := PrinterSettings{PaperWidth: 80, CharsPerLine: 42}.Normalized()
	assert.Equal(t, 42, custom.CharsPerLine)
}

func TestDisabledRowIsAbsentFromBytesAndPreview(t *testing.T) {
	settings := &ReceiptSettings{DateLabel: "Fecha", DateEnabled: boolPtr(false)}
	r := NewRenderer(nil, zaptest.NewLogger(t))

	out, err := r.Render(context.Background(), sampleData(), settings, narrowPrinter())
	require.NoError(t, err)
	assert.False(t, bytes.Contains(out, []byte("Fecha")))
	assert.False(t, bytes.Contains(out, []byte("2024-01-02")))
	assert.True(t, bytes.Contains(out, []byte("Time:")))

	html, err := r.RenderPreview(sampleData(), settings, narrowPrinter())
	require.NoError(t, err)
	assert.False(t, strings.Contains(html, "Fecha"))
	assert.False(t, strings.Contains(html, "2024-01-02"))
	assert.True(t, strings.Contains(html, "Time:"))
}

func TestTotalsBlockForTaxedSale(t *testing.T) {
	data := sampleData()
	data.Items = []ReceiptItem{{ID: "1", Name: "Notebook", Quantity: 2, Price: dec("4.99"), Total: dec("9.98")}}
	data.Subtotal = dec("9.98")
	data.Tax = decPtr("0.80")
	data.Discount = decPtr("0")
	data.Total = dec("10.78")
	printer := PresetFor(80)

	out, err := NewRenderer(nil, zaptest.NewLogger(t)).Render(context.Background(), data, &ReceiptSettings{}, printer)
	require.NoError(t, err)

	width := printer.CharsPerLine
	subtotal := escpos.NewEncoder().LeftRight("Subtotal:", "$9.98", width).Newline().Bytes()
	tax := escpos.NewEncoder().LeftRight("Tax:", "$0.80", width).Newline().Bytes()
	total := escpos.NewEncoder().Bold(true).LeftRight("TOTAL:", "$10.78", width).Newline().Bold(false).Bytes()

	assert.True(t, bytes.Contains(out, subtotal))
	assert.True(t, bytes.Contains(out, tax))
	assert.True(t, bytes.Contains(out, total))
	assert.False(t, bytes.Contains(out, []byte("Discount")))
	assert.Less(t, bytes.Index(out, subtotal), bytes.Index(out, tax))
	assert.Less(t, bytes.Index(out, tax), bytes.Index(out, total))
}
