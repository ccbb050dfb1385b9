package substitute

import (
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"
	"golang.org/x/text/unicode/norm"

	"idmlfill/tags"
)

// styleRanges are removed when substitution leaves them without content.
var styleRanges = map[string]bool{
	"CharacterStyleRange": true,
	"ParagraphStyleRange": true,
}

// Clean prepares text for story content: NFC normalization, line breaks
// unified to "\n" and runes not allowed in XML 1.0 dropped.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == utf8.RuneError || !xmlChar(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func xmlChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n':
		return true
	case r < 0x20:
		return false
	case r >= 0xD800 && r <= 0xDFFF:
		return false
	case r == 0xFFFE || r == 0xFFFF:
		return false
	}
	return r <= 0x10FFFF
}

// collect returns Content and Br descendants of el in document order.
// Properties and nested structure attributes are not text. Text of nested
// tagged elements belongs to them and is not collected.
func collect(el *etree.Element) (contents, breaks []*etree.Element) {
	var visit func(e *etree.Element)
	visit = func(e *etree.Element) {
		for _, child := range e.ChildElements() {
			switch child.Tag {
			case "Content":
				contents = append(contents, child)
			case "Br":
				breaks = append(breaks, child)
			case "Properties", "XMLAttribute":
			default:
				if _, tagged := tags.TagName(child); tagged {
					continue
				}
				visit(child)
			}
		}
	}
	visit(el)
	return contents, breaks
}

// innermostRange returns the deepest style range without nested ranges, or
// el itself.
func innermostRange(el *etree.Element) *etree.Element {
	for _, child := range el.ChildElements() {
		if styleRanges[child.Tag] {
			return innermostRange(child)
		}
	}
	return el
}

func setText(content *etree.Element, text string) {
	for len(content.Child) > 0 {
		content.RemoveChildAt(0)
	}
	content.SetText(text)
}

// ReplaceText puts value into el in place of its current text. The first
// Content keeps its position and so its formatting, every line after the
// first goes into new Content preceded by Br. All other text of el is removed
// and style ranges left empty are pruned. Nested tagged elements are left
// untouched.
func ReplaceText(el *etree.Element, value string) {
	lines := strings.Split(Clean(value), "\n")
	contents, breaks := collect(el)

	var first *etree.Element
	if len(contents) > 0 {
		first = contents[0]
	} else {
		first = innermostRange(el).CreateElement("Content")
	}

	touched := make(map[*etree.Element]bool)
	remove := func(e *etree.Element) {
		if p := e.Parent(); p != nil {
			p.RemoveChild(e)
			touched[p] = true
		}
	}
	for _, c := range contents[min(1, len(contents)):] {
		remove(c)
	}
	for _, br := range breaks {
		remove(br)
	}

	setText(first, lines[0])
	parent, pos := first.Parent(), first.Index()
	for _, line := range lines[1:] {
		br := etree.NewElement("Br")
		parent.InsertChildAt(pos+1, br)
		c := etree.NewElement("Content")
		c.SetText(line)
		parent.InsertChildAt(pos+2, c)
		pos += 2
	}

	prune(el, touched)
}

func prune(root *etree.Element, touched map[*etree.Element]bool) {
	queue := make([]*etree.Element, 0, len(touched))
	for e := range touched {
		queue = append(queue, e)
	}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if e == root || !styleRanges[e.Tag] || !emptyRange(e) {
			continue
		}
		p := e.Parent()
		if p == nil {
			continue
		}
		p.RemoveChild(e)
		queue = append(queue, p)
	}
}

func emptyRange(e *etree.Element) bool {
	for _, child := range e.ChildElements() {
		if child.Tag != "Properties" {
			return false
		}
	}
	return len(strings.TrimSpace(e.Text())) == 0
}
