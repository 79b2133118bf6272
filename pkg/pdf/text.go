package pdf

import (
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

// pdfDocHigh maps PDFDocEncoding bytes 0x80..0xA0, the range where it
// departs from Latin-1.
var pdfDocHigh = [...]rune{
	'•', '†', '‡', '…', '—', '–', 'ƒ', '⁄', '‹', '›', '−', '‰', '„', '“', '”', '‘',
	'’', '‚', '™', 'ﬁ', 'ﬂ', 'Ł', 'Œ', 'Š', 'Ÿ', 'Ž', 'ı', 'ł', 'œ', 'š', 'ž', '�',
	'€',
}

// decodeText converts a PDF text string to UTF-8. Strings with a UTF-16BE
// or UTF-8 byte order mark are decoded as such; everything else is
// PDFDocEncoding. Control characters become spaces and the result is
// trimmed.
func decodeText(b []byte) string {
	var s string
	switch {
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		dec := xunicode.UTF16(xunicode.BigEndian, xunicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(b)
		if err != nil {
			return ""
		}
		s = string(out)
	case len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF:
		s = string(b[3:])
	default:
		var sb strings.Builder
		for _, c := range b {
			if c >= 0x80 && c <= 0xA0 {
				sb.WriteRune(pdfDocHigh[c-0x80])
				continue
			}
			sb.WriteRune(charmap.ISO8859_1.DecodeByte(c))
		}
		s = sb.String()
	}
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s))
}
