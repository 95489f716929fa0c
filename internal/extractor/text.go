package extractor

import (
	"errors"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"tamil-assistant/internal/domain"
)

var errInvalidUTF8 = errors.New("invalid utf-8")

type textDecoder struct {
	name   string
	decode func([]byte) (string, error)
}

// Tried in order; the first decoder that succeeds wins.
var textDecoders = []textDecoder{
	{"utf-8", strictUTF8(unicode.UTF8)},
	{"utf-8-sig", strictUTF8(unicode.UTF8BOM)},
	{"latin-1", single(charmap.ISO8859_1)},
	{"windows-1252", single(charmap.Windows1252)},
}

func strictUTF8(enc encoding.Encoding) func([]byte) (string, error) {
	return func(b []byte) (string, error) {
		if !utf8.Valid(b) {
			return "", errInvalidUTF8
		}
		out, err := enc.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

func single(enc encoding.Encoding) func([]byte) (string, error) {
	return func(b []byte) (string, error) {
		out, err := enc.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", domain.E(domain.KindIO, "read text", err)
	}
	return decodeText(data), nil
}

// decodeText returns "" when no decoder accepts data.
func decodeText(data []byte) string {
	for _, d := range textDecoders {
		if s, err := d.decode(data); err == nil {
			return s
		}
	}
	return ""
}
