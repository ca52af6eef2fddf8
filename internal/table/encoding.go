package table

// encoding.go normalises uploaded bytes to UTF-8 before CSV parsing.
//
// Load sheets come out of building-automation tools and spreadsheets on
// Windows machines, so besides plain UTF-8 we see UTF-8 with a BOM, UTF-16
// with a BOM, and legacy single-byte code pages.

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names reported by Decode.
const (
	EncodingUTF8        = "utf-8"
	EncodingUTF8BOM     = "utf-8-bom"
	EncodingUTF16LE     = "utf-16le"
	EncodingUTF16BE     = "utf-16be"
	EncodingWindows1252 = "windows-1252"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode detects the encoding of data, strips any byte order mark, and
// returns UTF-8 bytes together with the detected encoding name. Bytes that
// are neither BOM-marked nor valid UTF-8 are read as Windows-1252, which is a
// superset of Latin-1 for the printable range.
func Decode(data []byte) ([]byte, string, error) {
	switch {
	case len(data) == 0:
		return data, EncodingUTF8, nil
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], EncodingUTF8BOM, nil
	case bytes.HasPrefix(data, bomUTF16LE):
		out, err := decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), evenLength(data))
		if err != nil {
			return nil, "", fmt.Errorf("decode %s: %w", EncodingUTF16LE, err)
		}
		return out, EncodingUTF16LE, nil
	case bytes.HasPrefix(data, bomUTF16BE):
		out, err := decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), evenLength(data))
		if err != nil {
			return nil, "", fmt.Errorf("decode %s: %w", EncodingUTF16BE, err)
		}
		return out, EncodingUTF16BE, nil
	case utf8.Valid(data):
		return data, EncodingUTF8, nil
	}

	out, err := decodeWith(charmap.Windows1252, data)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", EncodingWindows1252, err)
	}
	return out, EncodingWindows1252, nil
}

func decodeWith(enc encoding.Encoding, data []byte) ([]byte, error) {
	return enc.NewDecoder().Bytes(data)
}

// evenLength drops a dangling trailing byte from UTF-16 input.
func evenLength(data []byte) []byte {
	if len(data)%2 != 0 {
		return data[:len(data)-1]
	}
	return data
}
