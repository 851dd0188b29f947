package escpos

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoderPrimitives(t *testing.T) {
	tests := []struct {
		name  string
		build func(e *Encoder) *Encoder
		want  []byte
	}{
		{"initialize", func(e *Encoder) *Encoder { return e.Initialize() }, []byte{0x1B, 0x40}},
		{"align left", func(e *Encoder) *Encoder { return e.Align(AlignLeft) }, []byte{0x1B, 0x61, 0x00}},
		{"align center", func(e *Encoder) *Encoder { return e.Align(AlignCenter) }, []byte{0x1B, 0x61, 0x01}},
		{"align right", func(e *Encoder) *Encoder { return e.Align(AlignRight) }, []byte{0x1B, 0x61, 0x02}},
		{"bold on", func(e *Encoder) *Encoder { return e.Bold(true) }, []byte{0x1B, 0x45, 0x01}},
		{"bold off", func(e *Encoder) *Encoder { return e.Bold(false) }, []byte{0x1B, 0x45, 0x00}},
		{"size 1x1", func(e *Encoder) *Encoder { return e.Size(1, 1) }, []byte{0x1D, 0x21, 0x00}},
		{"size 2x1", func(e *Encoder) *Encoder { return e.Size(2, 1) }, []byte{0x1D, 0x21, 0x20}},
		{"size 1x2", func(e *Encoder) *Encoder { return e.Size(1, 2) }, []byte{0x1D, 0x21, 0x10}},
		{"size 2x2", func(e *Encoder) *Encoder { return e.Size(2, 2) }, []byte{0x1D, 0x21, 0x30}},
		{"cut", func(e *Encoder) *Encoder { return e.Cut() }, []byte{0x1D, 0x56, 0x42, 0x00}},
		{"newline", func(e *Encoder) *Encoder { return e.Newline() }, []byte{0x0A}},
		{"font B", func(e *Encoder) *Encoder { return e.FontSelect(FontB) }, []byte{0x1B, 0x4D, 0x01}},
		{"raw", func(e *Encoder) *Encoder { return e.Raw([]byte{0x1B, 0x4D, 0x02}) }, []byte{0x1B, 0x4D, 0x02}},
		{"text", func(e *Encoder) *Encoder { return e.Text("Hi!") }, []byte("Hi!")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.build(NewEncoder()).Bytes())
		})
	}
}

func TestEncoderChaining(t *testing.T) {
	got := NewEncoder().Initialize().Align(AlignCenter).Bold(true).Text("A").Newline().Cut().Bytes()
	want := []byte{0x1B, 0x40, 0x1B, 0x61, 0x01, 0x1B, 0x45, 0x01, 'A', 0x0A, 0x1D, 0x56, 0x42, 0x00}
	assert.Equal(t, want, got)
}

func TestLeftRight(t *testing.T) {
	tests := []struct {
		left, right string
		width       int
		want        string
	}{
		{"Subtotal:", "$10.00", 20, "Subtotal:     $10.00"},
		{"abc", "def", 6, "abc def"},
		{"abcdef", "ghijkl", 8, "abcdef ghijkl"},
		{"", "", 4, "    "},
		{"a", "b", 0, "a b"},
	}

	for _, tt := range tests {
		got := LeftRight(tt.left, tt.right, tt.width)
		assert.Equal(t, tt.want, got)

		wantLen := tt.width
		if minLen := len(tt.left) + len(tt.right) + 1; wantLen < minLen {
			wantLen = minLen
		}
		assert.Len(t, got, wantLen)
	}
}

func TestLeftRightCountsUTF16Units(t *testing.T) {
	// U+1F600 is two UTF-16 code units
	got := LeftRight("\U0001F600", "x", 5)
	assert.Equal(t, "\U0001F600  x", got)
}

func TestTextPassThroughWritesLowBytes(t *testing.T) {
	e := NewEncoder().Text("é€")

	// é = U+00E9, € = U+20AC
	assert.Equal(t, []byte{0xE9, 0xAC}, e.Bytes())
	assert.Equal(t, 2, e.NonASCIICount())
}

func TestTextTranscodes(t *testing.T) {
	cs, ok := LookupCharset("cp858")
	require.True(t, ok)

	e := NewEncoder(WithCharset(cs)).Initialize().Text("€1")
	assert.Equal(t, []byte{0x1B, 0x40, 0x1B, 0x74, 19, 0xD5, '1'}, e.Bytes())
	assert.Zero(t, e.NonASCIICount())
}

func TestTextTranscodeReplacesUnencodable(t *testing.T) {
	cs, ok := LookupCharset("CP437")
	require.True(t, ok)

	got := NewEncoder(WithCharset(cs)).Text("a漢b").Bytes()
	assert.Equal(t, []byte("a?b"), got)
}

func TestLookupCharsetAliases(t *testing.T) {
	for _, name := range []string{"UTF-8", "utf8", "GB18030", "big5", "EUC-KR", "Shift_JIS", "sjis", "PC437", "latin1"} {
		_, ok := LookupCharset(name)
		assert.True(t, ok, name)
	}
	_, ok := LookupCharset("klingon")
	assert.False(t, ok)
}

func TestQRCodeLengthBytes(t *testing.T) {
	data := strings.Repeat("x", 300)
	got := NewEncoder().QRCode(data, 6).Bytes()

	storeLen := len(data) + 3
	wantStore := []byte{0x1D, 0x28, 0x6B, byte(storeLen % 256), byte(storeLen / 256), 0x31, 0x50, 0x30}
	require.True(t, bytes.HasPrefix(got, wantStore))
	assert.Equal(t, byte(47), got[3])
	assert.Equal(t, byte(1), got[4])

	rest := got[len(wantStore)+len(data):]
	want := []byte{
		0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x43, 0x06,
		0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x45, 0x30,
		0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x51, 0x30,
	}
	assert.Equal(t, want, rest)
}

func TestQRCodeClampsSize(t *testing.T) {
	small := NewEncoder().QRCode("a", 0).Bytes()
	large := NewEncoder().QRCode("a", 40).Bytes()

	// size operand follows the 9-byte store block
	assert.Equal(t, byte(1), small[9+7])
	assert.Equal(t, byte(16), large[9+7])
}

func TestImageHeaderAndLength(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		rows   int
		wantXL byte
	}{
		{"byte aligned", 16, 3, 2},
		{"padded", 10, 4, 2},
		{"single column", 1, 5, 1},
		{"wide", 576, 2, 72},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			byteWidth := (tt.width + 7) / 8
			bitmap := bytes.Repeat([]byte{0xAA}, byteWidth*tt.rows)

			got := NewEncoder().Image(bitmap, tt.width).Bytes()

			require.Len(t, got, 8+byteWidth*tt.rows)
			assert.Equal(t, []byte{0x1D, 0x76, 0x30, 0x00}, got[:4])
			assert.Equal(t, tt.wantXL, got[4])
			assert.Equal(t, byte(0), got[5])
			assert.Equal(t, byte(tt.rows), got[6])
			assert.Equal(t, byte(0), got[7])
			assert.Equal(t, bitmap, got[8:])
		})
	}
}

func TestImageZeroWidth(t *testing.T) {
	got := NewEncoder().Image([]byte{0xFF, 0xFF}, 0).Bytes()
	assert.Equal(t, []byte{0x1D, 0x76, 0x30, 0x00, 0, 0, 0, 0}, got)

	got = NewEncoder().Image(nil, -5).Bytes()
	assert.Len(t, got, 8)
}

func TestBytesReturnsCopy(t *testing.T) {
	e := NewEncoder().Text("ab")
	out := e.Bytes()
	out[0] = 'z'
	assert.Equal(t, []byte("ab"), e.Bytes())
}
