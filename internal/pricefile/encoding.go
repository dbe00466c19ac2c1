package pricefile

import (
	"bytes"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

type candidate struct {
	name string
	enc  encoding.Encoding
}

// Order matters: on equal scores the earlier charset wins.
var cyrillicCharsets = []candidate{
	{name: "windows-1251", enc: charmap.Windows1251},
	{name: "cp866", enc: charmap.CodePage866},
	{name: "koi8-r", enc: charmap.KOI8R},
	{name: "iso-8859-5", enc: charmap.ISO8859_5},
}

// DecodeText converts a price file body to UTF-8 and reports the charset used.
func DecodeText(data []byte) (string, string) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):]), "utf-8"
	case bytes.HasPrefix(data, bomUTF16LE):
		if s, err := decodeWith(xunicode.UTF16(xunicode.LittleEndian, xunicode.ExpectBOM), data); err == nil {
			return s, "utf-16le"
		}
	case bytes.HasPrefix(data, bomUTF16BE):
		if s, err := decodeWith(xunicode.UTF16(xunicode.BigEndian, xunicode.ExpectBOM), data); err == nil {
			return s, "utf-16be"
		}
	}

	if utf8.Valid(data) {
		return string(data), "utf-8"
	}

	best, bestName, bestScore := "", "", 0
	for i, c := range cyrillicCharsets {
		s, err := decodeWith(c.enc, data)
		if err != nil {
			continue
		}
		score := cyrillicScore(s)
		if i == 0 || score > bestScore {
			best, bestName, bestScore = s, c.name, score
		}
	}

	return best, bestName
}

func decodeWith(enc encoding.Encoding, data []byte) (string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// cyrillicScore rewards Russian letters, lowercase more than uppercase since
// running text is mostly lowercase, and penalizes characters that only show
// up when bytes are read with the wrong code page.
func cyrillicScore(s string) int {
	score := 0
	for _, r := range s {
		switch {
		case (r >= 'а' && r <= 'я') || r == 'ё':
			score += 2
		case (r >= 'А' && r <= 'Я') || r == 'Ё':
			score++
		case r >= 0x0400 && r <= 0x04FF:
			score--
		case r >= 0x2500 && r <= 0x259F:
			score -= 2
		case r == utf8.RuneError:
			score -= 4
		case unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t':
			score -= 4
		}
	}
	return score
}
