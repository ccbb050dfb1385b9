package text

import (
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// block level elements produce line breaks
var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Blockquote: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Pre: true, atom.Ul: true, atom.Ol: true, atom.Table: true, atom.Tr: true,
	atom.Section: true, atom.Article: true, atom.Figure: true, atom.Figcaption: true,
}

// Plain flattens HTML fragment to text: tags are dropped together with
// script and style content, entities decoded, block elements and <br>
// become line breaks, runs of white space inside line are collapsed and
// empty lines removed. Plain text input comes out normalized the same way.
func Plain(in string) string {
	var (
		lines []string
		line  strings.Builder
		skip  int
	)
	flush := func() {
		// NBSP is content, not white space to collapse
		if s := strings.Join(slices.Collect(Words(line.String(), false)), " "); len(s) > 0 {
			lines = append(lines, s)
		}
		line.Reset()
	}

	z := html.NewTokenizer(strings.NewReader(in))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				// tokenizer does not fail on malformed markup, only on reader errors
				return strings.TrimSpace(in)
			}
			flush()
			return strings.Join(lines, "\n")
		case html.TextToken:
			if skip == 0 {
				line.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case a == atom.Script || a == atom.Style:
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
			case a == atom.Br || blocks[a]:
				flush()
			case a == atom.Td || a == atom.Th:
				line.WriteByte(' ')
			}
		}
	}
}

// TrimWords returns first n words of text joined with a single space,
// ellipsis is appended when anything was cut.
func TrimWords(in string, n int) string {
	words := slices.Collect(Words(in, false))
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "…"
}
