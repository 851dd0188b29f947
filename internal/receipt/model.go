// internal/receipt/model.go
package receipt

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// ReceiptItem is one purchased line. Totals are computed by the caller.
type ReceiptItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

// ReceiptData is the content of a single receipt. Optional amounts are nil
// when absent; total is trusted to equal subtotal + tax - discount.
type ReceiptData struct {
	ReceiptNumber string `json:"receipt_number"`
	TransactionID string `json:"transaction_id,omitempty"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	CashierName   string `json:"cashier_name,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`

	StoreName    string `json:"store_name"`
	StoreAddress string `json:"store_address,omitempty"`
	StorePhone   string `json:"store_phone,omitempty"`
	StoreLogo    string `json:"store_logo,omitempty"`

	// BusinessID and BusinessUpdatedAt identify the logo owner for caching
	BusinessID        string `json:"business_id,omitempty"`
	BusinessUpdatedAt string `json:"business_updated_at,omitempty"`

	Items []ReceiptItem `json:"items"`

	Subtotal      decimal.Decimal  `json:"subtotal"`
	Tax           *decimal.Decimal `json:"tax,omitempty"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	Total         decimal.Decimal  `json:"total"`
	PaymentMethod string           `json:"payment_method"`
	PaymentAmount *decimal.Decimal `json:"payment_amount,omitempty"`
	ChangeAmount  *decimal.Decimal `json:"change_amount,omitempty"`

	Footer   string `json:"footer,omitempty"`
	QRCode   string `json:"qrcode,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Currency string `json:"currency"`
}

// ItemLayout selects how item rows are drawn
type ItemLayout int

const (
	// ItemLayoutSingle draws "qty x name ... total" on one row
	ItemLayoutSingle ItemLayout = 0
	// ItemLayoutStacked draws a bold name row followed by "qty x price ... total"
	ItemLayoutStacked ItemLayout = 1
)

// LineCharacters is the closed set of divider characters
var LineCharacters = []string{"-", "=", "*", "_", ".", "~", "#"}

// PrinterFonts is the closed set of printer fonts
var PrinterFonts = []string{"A", "B", "C"}

// ReceiptSettings is the per-business receipt configuration. Every line
// category has a custom label and an enabled flag; a nil flag means enabled.
type ReceiptSettings struct {
	StyleID       string     `json:"style_id,omitempty"`
	PrinterFont   string     `json:"printer_font,omitempty"`
	LineCharacter string     `json:"line_character,omitempty"`
	ItemLayout    ItemLayout `json:"item_layout"`
	IncludeImage  bool       `json:"include_image"`
	FooterMessage string     `json:"footer_message,omitempty"`
	QRCodeData    string     `json:"qrcode_data,omitempty"`

	TransactionPrefix string `json:"transaction_prefix,omitempty"`
	TransactionNext   int    `json:"transaction_next,omitempty"`

	ReceiptIDLabel       string `json:"receipt_id_label,omitempty"`
	ReceiptIDEnabled     *bool  `json:"receipt_id_enabled,omitempty"`
	TransactionIDLabel   string `json:"transaction_id_label,omitempty"`
	TransactionIDEnabled *bool  `json:"transaction_id_enabled,omitempty"`
	DateLabel            string `json:"date_label,omitempty"`
	DateEnabled          *bool  `json:"date_enabled,omitempty"`
	TimeLabel            string `json:"time_label,omitempty"`
	TimeEnabled          *bool  `json:"time_enabled,omitempty"`
	CashierLabel         string `json:"cashier_label,omitempty"`
	CashierEnabled       *bool  `json:"cashier_enabled,omitempty"`
	CustomerLabel        string `json:"customer_label,omitempty"`
	CustomerEnabled      *bool  `json:"customer_enabled,omitempty"`
	ItemsLabel           string `json:"items_label,omitempty"`
	ItemsEnabled         *bool  `json:"items_enabled,omitempty"`
	SubtotalLabel        string `json:"subtotal_label,omitempty"`
	SubtotalEnabled      *bool  `json:"subtotal_enabled,omitempty"`
	DiscountLabel        string `json:"discount_label,omitempty"`
	DiscountEnabled      *bool  `json:"discount_enabled,omitempty"`
	TaxLabel             string `json:"tax_label,omitempty"`
	TaxEnabled           *bool  `json:"tax_enabled,omitempty"`
	TotalLabel           string `json:"total_label,omitempty"`
	TotalEnabled         *bool  `json:"total_enabled,omitempty"`
	PaymentMethodLabel   string `json:"payment_method_label,omitempty"`
	PaymentMethodEnabled *bool  `json:"payment_method_enabled,omitempty"`
	AmountPaidLabel      string `json:"amount_paid_label,omitempty"`
	AmountPaidEnabled    *bool  `json:"amount_paid_enabled,omitempty"`
	ChangeLabel          string `json:"change_label,omitempty"`
	ChangeEnabled        *bool  `json:"change_enabled,omitempty"`
}

// NextReceiptNumber formats the configured numbering, empty when unset
func (s *ReceiptSettings) NextReceiptNumber() string {
	if s.TransactionNext <= 0 {
		return ""
	}
	return s.TransactionPrefix + strconv.Itoa(s.TransactionNext)
}

// PrinterSettings tunes output for the physical printer
type PrinterSettings struct {
	PaperWidth        int    `json:"paper_width"`
	CharsPerLine      int    `json:"chars_per_line"`
	CharacterEncoding string `json:"character_encoding,omitempty"`
	Transcode         bool   `json:"transcode,omitempty"`
	FeedLines         int    `json:"feed_lines"`
	CutEnabled        bool   `json:"cut_enabled"`
}

// Paper width presets in millimetres
const (
	PaperWidth58 = 58
	PaperWidth80 = 80
)

// dotsPerChar is the font A cell width in dots
const dotsPerChar = 12

// PresetFor returns the default settings for a paper width
func PresetFor(paperWidth int) PrinterSettings {
	ps := PrinterSettings{
		PaperWidth:        paperWidth,
		CharacterEncoding: "UTF-8",
		FeedLines:         3,
		CutEnabled:        true,
	}
	ps.CharsPerLine = CharsPerLineFor(paperWidth)
	return ps
}

// CharsPerLineFor maps a paper width onto its preset column count
func CharsPerLineFor(paperWidth int) int {
	if paperWidth > 0 && paperWidth <= PaperWidth58 {
		return 32
	}
	return 48
}

// Normalized fills a missing column count from the paper width preset and
// clamps negative feed
func (p PrinterSettings) Normalized() PrinterSettings {
	if p.PaperWidth <= 0 {
		p.PaperWidth = PaperWidth80
	}
	if p.CharsPerLine <= 0 {
		p.CharsPerLine = CharsPerLineFor(p.PaperWidth)
	}
	if p.FeedLines < 0 {
		p.FeedLines = 0
	}
	return p
}

// MaxLogoWidth is the printable width in dots for the configured columns
func (p PrinterSettings) MaxLogoWidth() int {
	return p.CharsPerLine * dotsPerChar
}
