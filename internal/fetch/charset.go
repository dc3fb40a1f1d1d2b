package fetch

import (
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// DecodeBody converts raw page bytes to a UTF-8 string using best-guess
// charset detection. Korean boards still serve EUC-KR, often without a
// charset header, so the raw bytes are sniffed rather than trusting
// Content-Type. Detection or decode failure falls back to lossy UTF-8.
func DecodeBody(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	result, err := chardet.NewTextDetector().DetectBest(raw)
	if err == nil && result != nil {
		if decoded, ok := decodeAs(raw, result.Charset); ok {
			return decoded
		}
	}
	return strings.ToValidUTF8(string(raw), "�")
}

func decodeAs(raw []byte, charset string) (string, bool) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", false
	}
	if enc == unicode.UTF8 {
		return strings.ToValidUTF8(string(raw), "�"), true
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}
