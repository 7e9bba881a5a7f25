package security

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// nonceTags are the elements whose inline content CSP gates by nonce.
var nonceTags = map[string]bool{
	"script": true,
	"style":  true,
}

// InjectNonce copies the HTML document from src to dst and adds
// nonce="<nonce>" right after the tag name of every opening <script> and
// <style> tag. Everything else, including the contents of script and style
// elements, is copied byte for byte. A tag that already carries a nonce
// attribute is re-serialized with the stale value replaced.
func InjectNonce(dst io.Writer, src io.Reader, nonce string) error {
	attr := []byte(` nonce="` + html.EscapeString(nonce) + `"`)
	z := html.NewTokenizer(src)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// A truncated trailing tag is reported as an error token but
			// still has raw bytes; keep them.
			if _, err := dst.Write(z.Raw()); err != nil {
				return err
			}
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return fmt.Errorf("tokenizing html: %w", err)
			}
			return nil

		case html.StartTagToken, html.SelfClosingTagToken:
			// TagName lower-cases the tokenizer buffer in place, so take the
			// raw bytes first.
			raw := append([]byte(nil), z.Raw()...)
			name, hasAttr := z.TagName()
			if !nonceTags[string(name)] {
				if _, err := dst.Write(raw); err != nil {
					return err
				}
				continue
			}

			if hasAttr {
				if attrs, stale := readAttrs(z); stale {
					tok := html.Token{Type: tt, Data: string(name), Attr: withNonce(attrs, nonce)}
					if _, err := io.WriteString(dst, tok.String()); err != nil {
						return err
					}
					continue
				}
			}

			// raw is "<" + tag name + rest; the tokenizer only accepts a tag
			// name immediately after "<".
			cut := 1 + len(name)
			var out bytes.Buffer
			out.Grow(len(raw) + len(attr))
			out.Write(raw[:cut])
			out.Write(attr)
			out.Write(raw[cut:])
			if _, err := dst.Write(out.Bytes()); err != nil {
				return err
			}

		default:
			if _, err := dst.Write(z.Raw()); err != nil {
				return err
			}
		}
	}
}

// InjectNonceBytes is InjectNonce over an in-memory document.
func InjectNonceBytes(doc []byte, nonce string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(doc) + 64)
	if err := InjectNonce(&buf, bytes.NewReader(doc), nonce); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// readAttrs returns the current tag's attributes and whether one of them is
// a nonce.
func readAttrs(z *html.Tokenizer) ([]html.Attribute, bool) {
	var (
		attrs []html.Attribute
		stale bool
	)
	for {
		key, val, more := z.TagAttr()
		k := string(key)
		if k == "nonce" {
			stale = true
		}
		attrs = append(attrs, html.Attribute{Key: k, Val: string(val)})
		if !more {
			return attrs, stale
		}
	}
}

// withNonce puts nonce first and drops any existing nonce attributes.
func withNonce(attrs []html.Attribute, nonce string) []html.Attribute {
	out := make([]html.Attribute, 0, len(attrs)+1)
	out = append(out, html.Attribute{Key: "nonce", Val: nonce})
	for _, a := range attrs {
		if a.Key != "nonce" {
			out = append(out, a)
		}
	}
	return out
}
