// internal/escpos/encoder.go
package escpos

import (
	"strings"
)

// Encoder accumulates an ESC/POS byte stream. Every method appends to the
// buffer and returns the encoder so a print job reads as an ordered script.
// No method fails; out-of-range operands are clamped or produce empty output.
type Encoder struct {
	buf      []byte
	charset  *Charset
	nonASCII int
}

// Option configures an Encoder
type Option func(*Encoder)

// WithCharset transcodes text through cs instead of writing code units as bytes
func WithCharset(cs *Charset) Option {
	return func(e *Encoder) {
		e.charset = cs
	}
}

// NewEncoder creates an empty encoder
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{buf: make([]byte, 0, 1024)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize resets the printer. With a charset that has a code page, the
// code page selection follows the reset.
func (e *Encoder) Initialize() *Encoder {
	e.buf = append(e.buf, Commands.Initialize...)
	if e.charset != nil {
		if page, ok := e.charset.CodePage(); ok {
			e.buf = append(e.buf, Commands.CodePage...)
			e.buf = append(e.buf, page)
		}
	}
	return e
}

// Text appends s
func (e *Encoder) Text(s string) *Encoder {
	if e.charset != nil {
		e.buf = append(e.buf, e.charset.Encode(s)...)
		return e
	}

	var n int
	e.buf, n = passThrough(e.buf, s)
	e.nonASCII += n
	return e
}

// Newline appends a line feed
func (e *Encoder) Newline() *Encoder {
	e.buf = append(e.buf, Commands.LineFeed...)
	return e
}

// Line appends s followed by a line feed
func (e *Encoder) Line(s string) *Encoder {
	return e.Text(s).Newline()
}

// Feed appends n line feeds
func (e *Encoder) Feed(n int) *Encoder {
	for i := 0; i < n; i++ {
		e.Newline()
	}
	return e
}

// Align selects justification
func (e *Encoder) Align(a Alignment) *Encoder {
	if a > AlignRight {
		a = AlignLeft
	}
	e.buf = append(e.buf, Commands.Align...)
	e.buf = append(e.buf, byte(a))
	return e
}

// Bold toggles emphasized mode
func (e *Encoder) Bold(enabled bool) *Encoder {
	var n byte
	if enabled {
		n = 1
	}
	e.buf = append(e.buf, Commands.Bold...)
	e.buf = append(e.buf, n)
	return e
}

// Size sets character scale; each factor is 1 or 2
func (e *Encoder) Size(width, height int) *Encoder {
	var n byte
	if width == 2 {
		n += 32
	}
	if height == 2 {
		n += 16
	}
	e.buf = append(e.buf, Commands.Size...)
	e.buf = append(e.buf, n)
	return e
}

// FontSelect emits ESC M for the given font
func (e *Encoder) FontSelect(f Font) *Encoder {
	if f > FontC {
		f = FontA
	}
	e.buf = append(e.buf, Commands.FontSelect...)
	e.buf = append(e.buf, byte(f))
	return e
}

// LeftRight writes left and right separated by enough spaces to fill
// totalWidth, never fewer than one. Nothing is truncated.
func (e *Encoder) LeftRight(left, right string, totalWidth int) *Encoder {
	return e.Text(LeftRight(left, right, totalWidth))
}

// LeftRight returns the padded row LeftRight writes
func LeftRight(left, right string, totalWidth int) string {
	pad := totalWidth - TextWidth(left) - TextWidth(right)
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + right
}

// QRCode emits the GS ( k group: store data, module size, error correction L, print.
func (e *Encoder) QRCode(data string, size int) *Encoder {
	if size < 1 {
		size = 1
	}
	if size > 16 {
		size = 16
	}

	payload := []byte(data)
	if e.charset != nil {
		payload = e.charset.Encode(data)
	}
	storeLen := len(payload) + 3
	pL := byte(storeLen % 256)
	pH := byte(storeLen / 256)

	// Store data
	e.buf = append(e.buf, Commands.QRCode...)
	e.buf = append(e.buf, pL, pH, qrCN, qrFnStore, 0x30)
	e.buf = append(e.buf, payload...)

	// Module size
	e.buf = append(e.buf, Commands.QRCode...)
	e.buf = append(e.buf, 0x03, 0x00, qrCN, qrFnSize, byte(size))

	// Error correction level L
	e.buf = append(e.buf, Commands.QRCode...)
	e.buf = append(e.buf, 0x03, 0x00, qrCN, qrFnErrorCorr, qrErrorCorrL)

	// Print symbol
	e.buf = append(e.buf, Commands.QRCode...)
	e.buf = append(e.buf, 0x03, 0x00, qrCN, qrFnPrint, 0x30)
	return e
}

// Image emits a GS v 0 raster block. bitmap holds rows of ceil(width/8)
// bytes; a non-positive width yields a zero header and no payload.
func (e *Encoder) Image(bitmap []byte, width int) *Encoder {
	byteWidth, height := 0, 0
	if width > 0 {
		byteWidth = (width + 7) / 8
		height = len(bitmap) / byteWidth
	}

	e.buf = append(e.buf, Commands.RasterImage...)
	e.buf = append(e.buf, 0x00,
		byte(byteWidth%256), byte(byteWidth/256),
		byte(height%256), byte(height/256),
	)
	if height > 0 {
		e.buf = append(e.buf, bitmap[:byteWidth*height]...)
	}
	return e
}

// Cut feeds to the cutter and performs a partial cut
func (e *Encoder) Cut() *Encoder {
	e.buf = append(e.buf, Commands.CutFeedPartial...)
	return e
}

// Raw appends vendor-specific bytes unchanged
func (e *Encoder) Raw(b []byte) *Encoder {
	e.buf = append(e.buf, b...)
	return e
}

// Bytes returns a copy of the accumulated stream
func (e *Encoder) Bytes() []byte {
	out := make([]byte, len(e.buf))
	copy(out, e.buf)
	return out
}

// Len reports the number of bytes written so far
func (e *Encoder) Len() int {
	return len(e.buf)
}

// NonASCIICount reports how many non-ASCII code units were written without transcoding
func (e *Encoder) NonASCIICount() int {
	return e.nonASCII
}
