// internal/receipt/layout.go
package receipt

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"print-bridge/internal/escpos"
)

// RowKind tells a renderer how to draw a row
type RowKind int

const (
	// RowText is a single string
	RowText RowKind = iota
	// RowPair is a label and value spread across the full width
	RowPair
	// RowDivider is the divider character repeated to the line width
	RowDivider
	// RowLogo is the store logo; Text holds the image reference
	RowLogo
	// RowQRCode is a QR symbol; Text holds the payload
	RowQRCode
)

// Section groups rows by the part of the receipt they belong to
type Section int

const (
	SectionHeader Section = iota
	SectionMeta
	SectionItems
	SectionTotals
	SectionPayment
	SectionFooter
)

// QRModuleSize is the module size used for receipt QR codes
const QRModuleSize = 6

// Row is one line of a receipt, shared by the print and preview renderers
type Row struct {
	Kind    RowKind
	Section Section
	Text    string
	Left    string
	Right   string
	Align   escpos.Alignment
	Bold    bool
	Double  bool
}

// Line returns the row as it appears in a fixed-width column layout
func (r Row) Line(width int) string {
	switch r.Kind {
	case RowPair:
		return escpos.LeftRight(r.Left, r.Right, width)
	default:
		return r.Text
	}
}

// Document is the fully resolved receipt layout
type Document struct {
	Font      escpos.Font
	Width     int
	Rows      []Row
	FeedLines int
	Cut       bool
}

// Layout resolves data and settings into the ordered rows both renderers draw
func Layout(data *ReceiptData, settings *ReceiptSettings, ps PrinterSettings) *Document {
	ps = ps.Normalized()
	if settings == nil {
		settings = &ReceiptSettings{}
	}

	b := &layoutBuilder{
		doc: &Document{
			Font:      escpos.ParseFont(settings.PrinterFont),
			Width:     ps.CharsPerLine,
			FeedLines: ps.FeedLines,
			Cut:       ps.CutEnabled,
		},
		settings: settings,
		currency: data.Currency,
		divider:  divider(settings.LineCharacter, ps.CharsPerLine),
	}

	b.header(data)
	b.meta(data)
	b.items(data)
	b.totals(data)
	b.payment(data)
	b.footer(data)

	return b.doc
}

// divider repeats the configured character to width, clipped to width
func divider(char string, width int) string {
	if !slices.Contains(LineCharacters, char) {
		char = "-"
	}
	if width <= 0 {
		return ""
	}
	return strings.Repeat(char, width)[:width]
}

type layoutBuilder struct {
	doc      *Document
	settings *ReceiptSettings
	currency string
	divider  string
}

func (b *layoutBuilder) add(r Row) {
	b.doc.Rows = append(b.doc.Rows, r)
}

func (b *layoutBuilder) addDivider(section Section) {
	b.add(Row{Kind: RowDivider, Section: section, Text: b.divider, Align: escpos.AlignLeft})
}

// labeled adds a label/value row for kind when it is enabled and has a value
func (b *layoutBuilder) labeled(section Section, kind LineKind, value string, bold bool) {
	if value == "" || !b.settings.Enabled(kind) {
		return
	}
	label := b.settings.Label(kind)
	if label == "" {
		b.add(Row{Kind: RowText, Section: section, Text: value, Align: escpos.AlignLeft, Bold: bold})
		return
	}
	b.add(Row{Kind: RowPair, Section: section, Left: label + ":", Right: value, Align: escpos.AlignLeft, Bold: bold})
}

func (b *layoutBuilder) money(d decimal.Decimal) string {
	return b.currency + d.StringFixed(2)
}

func (b *layoutBuilder) header(data *ReceiptData) {
	if b.settings.IncludeImage && strings.TrimSpace(data.StoreLogo) != "" {
		b.add(Row{Kind: RowLogo, Section: SectionHeader, Text: strings.TrimSpace(data.StoreLogo), Align: escpos.AlignCenter})
	}
	if data.StoreName != "" {
		b.add(Row{Kind: RowText, Section: SectionHeader, Text: data.StoreName, Align: escpos.AlignCenter, Bold: true, Double: true})
	}
	if data.StoreAddress != "" {
		b.add(Row{Kind: RowText, Section: SectionHeader, Text: data.StoreAddress, Align: escpos.AlignCenter})
	}
	if data.StorePhone != "" {
		b.add(Row{Kind: RowText, Section: SectionHeader, Text: data.StorePhone, Align: escpos.AlignCenter})
	}
}

func (b *layoutBuilder) meta(data *ReceiptData) {
	b.addDivider(SectionMeta)

	receiptNumber := data.ReceiptNumber
	if receiptNumber == "" {
		receiptNumber = b.settings.NextReceiptNumber()
	}

	b.labeled(SectionMeta, LineReceiptID, receiptNumber, false)
	b.labeled(SectionMeta, LineTransactionID, data.TransactionID, false)
	b.labeled(SectionMeta, LineDate, data.Date, false)
	b.labeled(SectionMeta, LineTime, data.Time, false)
	b.labeled(SectionMeta, LineCashier, data.CashierName, false)
	b.labeled(SectionMeta, LineCustomer, data.CustomerName, false)
}

func (b *layoutBuilder) items(data *ReceiptData) {
	b.addDivider(SectionItems)

	if b.settings.Enabled(LineItemsHeading) {
		if label := b.settings.Label(LineItemsHeading); label != "" {
			b.add(Row{Kind: RowText, Section: SectionItems, Text: "--- " + label + " ---", Align: escpos.AlignCenter})
		}
	}

	for _, item := range data.Items {
		total := b.money(item.Total)
		switch b.settings.ItemLayout {
		case ItemLayoutStacked:
			b.add(Row{Kind: RowText, Section: SectionItems, Text: item.Name, Align: escpos.AlignLeft, Bold: true})
			b.add(Row{
				Kind:    RowPair,
				Section: SectionItems,
				Left:    fmt.Sprintf("  %d x %s", item.Quantity, b.money(item.Price)),
				Right:   total,
				Align:   escpos.AlignLeft,
			})
		default:
			b.add(Row{
				Kind:    RowPair,
				Section: SectionItems,
				Left:    fmt.Sprintf("%d x %s", item.Quantity, item.Name),
				Right:   total,
				Align:   escpos.AlignLeft,
			})
		}
	}
}

func (b *layoutBuilder) totals(data *ReceiptData) {
	b.addDivider(SectionTotals)

	b.labeled(SectionTotals, LineSubtotal, b.money(data.Subtotal), false)
	if data.Discount != nil && !data.Discount.IsZero() {
		b.labeled(SectionTotals, LineDiscount, "-"+b.money(data.Discount.Abs()), false)
	}
	if data.Tax != nil {
		b.labeled(SectionTotals, LineTax, b.money(*data.Tax), false)
	}
	b.labeled(SectionTotals, LineTotal, b.money(data.Total), true)
}

func (b *layoutBuilder) payment(data *ReceiptData) {
	b.addDivider(SectionPayment)

	b.labeled(SectionPayment, LinePaymentMethod, data.PaymentMethod, false)
	if data.PaymentAmount != nil && !data.PaymentAmount.IsZero() {
		b.labeled(SectionPayment, LineAmountPaid, b.money(*data.PaymentAmount), false)
	}
	if data.ChangeAmount != nil && !data.ChangeAmount.IsZero() {
		b.labeled(SectionPayment, LineChange, b.money(*data.ChangeAmount), false)
	}
}

func (b *layoutBuilder) footer(data *ReceiptData) {
	footer := data.Footer
	if strings.TrimSpace(b.settings.FooterMessage) != "" {
		footer = b.settings.FooterMessage
	}
	if strings.TrimSpace(footer) != "" {
		for _, line := range strings.Split(strings.TrimRight(footer, "\n"), "\n") {
			b.add(Row{Kind: RowText, Section: SectionFooter, Text: strings.TrimRight(line, "\r"), Align: escpos.AlignCenter})
		}
	}

	qr := data.QRCode
	if strings.TrimSpace(b.settings.QRCodeData) != "" {
		qr = b.settings.QRCodeData
	}
	if strings.TrimSpace(qr) != "" {
		b.add(Row{Kind: RowQRCode, Section: SectionFooter, Text: qr, Align: escpos.AlignCenter})
	}
}
