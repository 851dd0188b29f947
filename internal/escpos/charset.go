// internal/escpos/charset.go
package escpos

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// Charset is a printer character encoding reachable through x/text
type Charset struct {
	Name     string
	encoding encoding.Encoding
	// codePage is the ESC t operand, -1 when the printer selects it some other way
	codePage int
}

var charsets = map[string]*Charset{
	"UTF8":        {Name: "UTF-8", encoding: unicode.UTF8, codePage: -1},
	"GB18030":     {Name: "GB18030", encoding: simplifiedchinese.GB18030, codePage: -1},
	"GBK":         {Name: "GBK", encoding: simplifiedchinese.GBK, codePage: -1},
	"BIG5":        {Name: "Big5", encoding: traditionalchinese.Big5, codePage: -1},
	"EUCKR":       {Name: "EUC-KR", encoding: korean.EUCKR, codePage: -1},
	"SHIFTJIS":    {Name: "Shift_JIS", encoding: japanese.ShiftJIS, codePage: 1},
	"CP437":       {Name: "CP437", encoding: charmap.CodePage437, codePage: 0},
	"CP850":       {Name: "CP850", encoding: charmap.CodePage850, codePage: 2},
	"CP858":       {Name: "CP858", encoding: charmap.CodePage858, codePage: 19},
	"CP866":       {Name: "CP866", encoding: charmap.CodePage866, codePage: 17},
	"WINDOWS1252": {Name: "Windows-1252", encoding: charmap.Windows1252, codePage: 16},
	"ISO88591":    {Name: "ISO-8859-1", encoding: charmap.ISO8859_1, codePage: -1},
}

var charsetAliases = map[string]string{
	"UTF":    "UTF8",
	"SJIS":   "SHIFTJIS",
	"PC437":  "CP437",
	"PC850":  "CP850",
	"PC858":  "CP858",
	"PC866":  "CP866",
	"CP1252": "WINDOWS1252",
	"LATIN1": "ISO88591",
	"EUCCN":  "GB18030",
}

// LookupCharset resolves an encoding name such as "GB18030", "shift-jis" or "cp858"
func LookupCharset(name string) (*Charset, bool) {
	key := strings.ToUpper(strings.NewReplacer("-", "", "_", "", " ", "").Replace(name))
	if alias, ok := charsetAliases[key]; ok {
		key = alias
	}
	cs, ok := charsets[key]
	return cs, ok
}

// Encode converts s to the charset, replacing unencodable runes with '?'
func (cs *Charset) Encode(s string) []byte {
	enc := cs.encoding.NewEncoder()
	if out, err := enc.Bytes([]byte(s)); err == nil {
		return out
	}

	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, err := enc.Bytes([]byte(string(r)))
		if err != nil {
			out = append(out, '?')
			continue
		}
		out = append(out, b...)
	}
	return out
}

// CodePage reports the ESC t operand for the charset
func (cs *Charset) CodePage() (byte, bool) {
	if cs.codePage < 0 {
		return 0, false
	}
	return byte(cs.codePage), true
}

// TextWidth counts s in UTF-16 code units, the unit used for column layout
func TextWidth(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// passThrough writes the low byte of every UTF-16 code unit of s
func passThrough(dst []byte, s string) ([]byte, int) {
	nonASCII := 0
	for _, unit := range utf16.Encode([]rune(s)) {
		if unit > 0x7F {
			nonASCII++
		}
		dst = append(dst, byte(unit))
	}
	return dst, nonASCII
}
