// Package assets rewrites static asset references so a deployment can be
// served under a versioned prefix.
//
// Two conventions are recognized. A path starting with static/ (optionally
// /static/) gets the prefix inserted right after static/, and a bare
// reference to one of the bundle entry points app.js or app.css gets the
// prefix inserted before the extension:
//
//	static/img/logo.png  ->  static/v42/img/logo.png
//	/app.css             ->  /app-v42.css
//
// An empty prefix disables rewriting.
package assets

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

const (
	staticDir  = "static/"
	scriptName = "app.js"
	styleName  = "app.css"
)

// rewrittenAttrs lists the attributes that can carry an asset reference.
var rewrittenAttrs = map[string]bool{
	"src":      true,
	"href":     true,
	"data-src": true,
	"poster":   true,
}

// Rewriter applies one deployment prefix.
type Rewriter struct {
	prefix string
}

// NewRewriter returns a Rewriter for prefix. An empty prefix yields a
// rewriter that leaves every input untouched.
func NewRewriter(prefix string) *Rewriter {
	return &Rewriter{prefix: prefix}
}

// Prefix returns the deployment prefix.
func (r *Rewriter) Prefix() string {
	return r.prefix
}

// OutputNames returns the file names of the script and style bundles for
// prefix.
func OutputNames(prefix string) (script, style string) {
	if prefix == "" {
		return scriptName, styleName
	}
	return withPrefix(scriptName, prefix), withPrefix(styleName, prefix)
}

func withPrefix(name, prefix string) string {
	dot := strings.LastIndexByte(name, '.')
	return name[:dot] + "-" + prefix + name[dot:]
}

// RewriteValue rewrites a single attribute value.
func (r *Rewriter) RewriteValue(value string) string {
	if r.prefix == "" {
		return value
	}

	lead, rest := "", value
	switch {
	case strings.HasPrefix(rest, "./"):
		lead, rest = "./", rest[2:]
	case strings.HasPrefix(rest, "/"):
		lead, rest = "/", rest[1:]
	}

	switch {
	case lead != "./" && strings.HasPrefix(rest, staticDir):
		return lead + staticDir + r.prefix + "/" + rest[len(staticDir):]
	case rest == scriptName, rest == styleName:
		return lead + withPrefix(rest, r.prefix)
	}

	return value
}

// RewriteMarkup rewrites asset references in a markup fragment. Tokens that
// need no change are copied byte for byte, so template expressions and
// formatting survive.
func (r *Rewriter) RewriteMarkup(fragment string) (string, error) {
	if r.prefix == "" {
		return fragment, nil
	}

	var out strings.Builder
	out.Grow(len(fragment) + 64)

	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return "", fmt.Errorf("tokenize markup: %w", err)
			}
			return out.String(), nil
		}

		raw := z.Raw()
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			out.WriteString(r.rewriteRawTag(raw))
			continue
		}
		out.Write(raw)
	}
}

// rewriteAttrs rewrites attrs in place.
func (r *Rewriter) rewriteAttrs(attrs []html.Attribute) {
	for i, attr := range attrs {
		if attr.Namespace != "" || !rewrittenAttrs[attr.Key] {
			continue
		}
		attrs[i].Val = r.RewriteValue(attr.Val)
	}
}

// rewriteRawTag rewrites the asset attributes of one raw start tag. Only the
// bytes of a changed value are replaced; the tag name, the other attributes
// and the quoting are kept as written.
func (r *Rewriter) rewriteRawTag(raw []byte) string {
	var out strings.Builder
	last := 0
	for _, span := range attrSpans(raw) {
		if !rewrittenAttrs[strings.ToLower(string(raw[span.keyStart:span.keyEnd]))] {
			continue
		}
		written := string(raw[span.valStart:span.valEnd])
		value := html.UnescapeString(written)
		rewritten := r.RewriteValue(value)
		if rewritten == value {
			continue
		}
		if written == value {
			// no character references, so the new value can go in verbatim
			written = rewritten
		} else {
			written = html.EscapeString(rewritten)
		}
		out.Write(raw[last:span.valStart])
		out.WriteString(written)
		last = span.valEnd
	}
	if last == 0 {
		return string(raw)
	}
	out.Write(raw[last:])
	return out.String()
}

type attrSpan struct {
	keyStart, keyEnd int
	valStart, valEnd int
}

// attrSpans locates the attributes of a raw start tag that carry a value,
// splitting keys and values the way the html tokenizer does. Value offsets
// exclude the quotes.
func attrSpans(raw []byte) []attrSpan {
	isSpace := func(c byte) bool {
		return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f'
	}

	i, n := 1, len(raw)
	for i < n && !isSpace(raw[i]) && raw[i] != '/' && raw[i] != '>' {
		i++
	}

	var spans []attrSpan
	for i < n {
		for i < n && (isSpace(raw[i]) || raw[i] == '/') {
			i++
		}
		if i >= n || raw[i] == '>' {
			break
		}

		keyStart := i
		i++ // a leading '=' belongs to the key
		for i < n && !isSpace(raw[i]) && raw[i] != '/' && raw[i] != '=' && raw[i] != '>' {
			i++
		}
		keyEnd := i

		for i < n && isSpace(raw[i]) {
			i++
		}
		if i >= n || raw[i] != '=' {
			continue
		}
		i++
		for i < n && isSpace(raw[i]) {
			i++
		}
		if i >= n {
			break
		}

		span := attrSpan{keyStart: keyStart, keyEnd: keyEnd}
		if quote := raw[i]; quote == '"' || quote == '\'' {
			i++
			span.valStart = i
			for i < n && raw[i] != quote {
				i++
			}
			span.valEnd = i
			if i < n {
				i++
			}
		} else {
			span.valStart = i
			for i < n && !isSpace(raw[i]) && raw[i] != '>' {
				i++
			}
			span.valEnd = i
		}
		spans = append(spans, span)
	}
	return spans
}

// RewritePage parses a complete HTML page, rewrites asset references on
// every element and renders it back with an HTML5 doctype.
func (r *Rewriter) RewritePage(page io.Reader) ([]byte, error) {
	doc, err := html.Parse(page)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			r.rewriteAttrs(n.Attr)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n")
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.DoctypeNode {
			continue
		}
		if err := html.Render(&buf, c); err != nil {
			return nil, fmt.Errorf("render page: %w", err)
		}
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}
