// internal/receipt/labels.go
package receipt

import "strings"

// LineKind names a configurable receipt row category
type LineKind int

const (
	LineReceiptID LineKind = iota
	LineTransactionID
	LineDate
	LineTime
	LineCashier
	LineCustomer
	LineItemsHeading
	LineSubtotal
	LineDiscount
	LineTax
	LineTotal
	LinePaymentMethod
	LineAmountPaid
	LineChange
)

var defaultLabels = map[LineKind]string{
	LineReceiptID:     "Receipt #",
	LineTransactionID: "Transaction ID",
	LineDate:          "Date",
	LineTime:          "Time",
	LineCashier:       "Cashier",
	LineCustomer:      "Customer",
	LineItemsHeading:  "ITEMS",
	LineSubtotal:      "Subtotal",
	LineDiscount:      "Discount",
	LineTax:           "Tax",
	LineTotal:         "TOTAL",
	LinePaymentMethod: "Payment Method",
	LineAmountPaid:    "Amount Paid",
	LineChange:        "Change",
}

// DefaultLabel returns the built-in label for kind
func DefaultLabel(kind LineKind) string {
	return defaultLabels[kind]
}

// fields returns the custom label and enabled flag configured for kind
func (s *ReceiptSettings) fields(kind LineKind) (string, *bool) {
	switch kind {
	case LineReceiptID:
		return s.ReceiptIDLabel, s.ReceiptIDEnabled
	case LineTransactionID:
		return s.TransactionIDLabel, s.TransactionIDEnabled
	case LineDate:
		return s.DateLabel, s.DateEnabled
	case LineTime:
		return s.TimeLabel, s.TimeEnabled
	case LineCashier:
		return s.CashierLabel, s.CashierEnabled
	case LineCustomer:
		return s.CustomerLabel, s.CustomerEnabled
	case LineItemsHeading:
		return s.ItemsLabel, s.ItemsEnabled
	case LineSubtotal:
		return s.SubtotalLabel, s.SubtotalEnabled
	case LineDiscount:
		return s.DiscountLabel, s.DiscountEnabled
	case LineTax:
		return s.TaxLabel, s.TaxEnabled
	case LineTotal:
		return s.TotalLabel, s.TotalEnabled
	case LinePaymentMethod:
		return s.PaymentMethodLabel, s.PaymentMethodEnabled
	case LineAmountPaid:
		return s.AmountPaidLabel, s.AmountPaidEnabled
	case LineChange:
		return s.ChangeLabel, s.ChangeEnabled
	}
	return "", nil
}

// Enabled reports whether rows of kind are printed. Only an explicit false disables.
func (s *ReceiptSettings) Enabled(kind LineKind) bool {
	_, enabled := s.fields(kind)
	return enabled == nil || *enabled
}

// Label returns the custom label for kind, or the default when the custom
// label is blank. The enabled flag is not consulted.
func (s *ReceiptSettings) Label(kind LineKind) string {
	label, _ := s.fields(kind)
	if strings.TrimSpace(label) == "" {
		return DefaultLabel(kind)
	}
	return label
}
