package fetch

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoMatch is returned when a page carries no price element.
var ErrNoMatch = errors.New("fetch: price element not found")

// Class tokens that mark the price element on a quote page.
const (
	priceClassA = "YMlKec"
	priceClassB = "fxKbKc"
)

// ExtractPrice scans page for the first element whose class attribute holds
// both price class tokens and returns the normalized text that immediately
// follows its start tag.
func ExtractPrice(page string) (string, error) {
	return extract(strings.NewReader(page))
}

func extract(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	armed := false

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != nil && err != io.EOF {
				return "", err
			}
			return "", ErrNoMatch

		case html.StartTagToken:
			armed = hasPriceClass(z)

		case html.TextToken:
			if !armed {
				continue
			}
			armed = false
			if v := Normalize(string(z.Text())); v != "" {
				return v, nil
			}

		default:
			armed = false
		}
	}
}

func hasPriceClass(z *html.Tokenizer) bool {
	_, more := z.TagName()
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		if string(key) != "class" {
			continue
		}
		var a, b bool
		for _, tok := range strings.Fields(string(val)) {
			switch tok {
			case priceClassA:
				a = true
			case priceClassB:
				b = true
			}
		}
		return a && b
	}
	return false
}

// Normalize trims whitespace and removes thousands separators and dollar
// signs. It does not validate that the result is numeric.
func Normalize(token string) string {
	return strings.TrimSpace(strings.NewReplacer(",", "", "$", "").Replace(token))
}
