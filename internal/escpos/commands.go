// internal/escpos/commands.go
package escpos

// Commands contains the fixed ESC/POS sequences used by the encoder.
// Operand bytes are appended by the encoder where a command takes one.
var Commands = struct {
	// Basic commands
	Initialize    []byte
	StatusRequest []byte

	// Text formatting
	Bold       []byte // + 0/1
	Align      []byte // + 0/1/2
	Size       []byte // + n
	FontSelect []byte // + 0/1/2
	CodePage   []byte // + n

	// Paper handling
	LineFeed []byte

	// Cutting
	CutFeedPartial []byte

	// Graphics
	RasterImage []byte // + m xL xH yL yH
	QRCode      []byte // + pL pH cn fn ...
}{
	Initialize:    []byte{0x1B, 0x40},       // ESC @
	StatusRequest: []byte{0x10, 0x04, 0x01}, // DLE EOT 1

	Bold:       []byte{0x1B, 0x45}, // ESC E
	Align:      []byte{0x1B, 0x61}, // ESC a
	Size:       []byte{0x1D, 0x21}, // GS !
	FontSelect: []byte{0x1B, 0x4D}, // ESC M
	CodePage:   []byte{0x1B, 0x74}, // ESC t

	LineFeed: []byte{0x0A}, // LF

	CutFeedPartial: []byte{0x1D, 0x56, 0x42, 0x00}, // GS V 66 0

	RasterImage: []byte{0x1D, 0x76, 0x30}, // GS v 0
	QRCode:      []byte{0x1D, 0x28, 0x6B}, // GS ( k
}

// QR function codes for the GS ( k family, symbol type 49 (QR)
const (
	qrCN          = 0x31
	qrFnSize      = 0x43 // 167
	qrFnErrorCorr = 0x45 // 169
	qrFnStore     = 0x50 // 180
	qrFnPrint     = 0x51 // 181
	qrErrorCorrL  = 0x30
)

// Alignment selects the ESC a operand
type Alignment byte

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// String returns the alignment name
func (a Alignment) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "left"
	}
}

// Font selects the ESC M operand
type Font byte

const (
	FontA Font = iota
	FontB
	FontC
)

// ParseFont maps a font letter onto its operand, defaulting to A
func ParseFont(name string) Font {
	switch name {
	case "B", "b":
		return FontB
	case "C", "c":
		return FontC
	default:
		return FontA
	}
}

// String returns the font letter
func (f Font) String() string {
	switch f {
	case FontB:
		return "B"
	case FontC:
		return "C"
	default:
		return "A"
	}
}
