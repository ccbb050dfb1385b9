// Package tags discovers structure tags placed by designers into package
// stories and aggregates them into registry.
package tags

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"idmlfill/common"
	"idmlfill/idml"
)

const markupPrefix = "XMLTag/"

// Marker is a single occurrence of structure tag.
type Marker struct {
	Name     string
	Type     common.TagType
	Explicit bool // type was set by attribute
	// Content is text of the tagged range, lines separated by "\n".
	Content string
	// ElementID is Self of the tagged element.
	ElementID string
	// Ref is XMLContent of the tagged element: page item or story it marks.
	Ref     string
	StoryID string
}

type ScanOptions struct {
	Ignore        []string
	ImagePrefixes []string
	TypeAttribute string
}

func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		Ignore:        []string{"Root"},
		ImagePrefixes: []string{"image", "img", "photo", "picture", "pic"},
		TypeAttribute: "type",
	}
}

func (o ScanOptions) ignored(name string) bool {
	for _, n := range o.Ignore {
		if n == name {
			return true
		}
	}
	return false
}

func (o ScanOptions) guessType(name string) common.TagType {
	lname := strings.ToLower(name)
	for _, p := range o.ImagePrefixes {
		if strings.HasPrefix(lname, strings.ToLower(p)) {
			return common.TagTypeImage
		}
	}
	return common.TagTypeText
}

var reNameEscape = regexp.MustCompile(`_x([0-9A-Fa-f]{4})_`)

// DecodeName decodes tag name escapes: "my_x0020_tag" is "my tag".
func DecodeName(name string) string {
	return reNameEscape.ReplaceAllStringFunc(name, func(s string) string {
		v, err := strconv.ParseUint(s[2:6], 16, 32)
		if err != nil {
			return s
		}
		return string(rune(v))
	})
}

// TagName returns decoded tag name of structure element or false when element
// is not a tag.
func TagName(el *etree.Element) (string, bool) {
	if el.Tag != "XMLElement" {
		return "", false
	}
	markup := el.SelectAttrValue("MarkupTag", "")
	if !strings.HasPrefix(markup, markupPrefix) {
		return "", false
	}
	name := DecodeName(strings.TrimPrefix(markup, markupPrefix))
	return name, len(name) > 0
}

// Scan returns markers of the story in document order.
func Scan(doc *etree.Document, storyID string, opts ScanOptions) []Marker {
	if doc.Root() == nil {
		return nil
	}

	var markers []Marker
	var visit func(el *etree.Element)
	visit = func(el *etree.Element) {
		if name, ok := TagName(el); ok && !opts.ignored(name) {
			markers = append(markers, newMarker(el, name, storyID, opts))
		}
		for _, child := range el.ChildElements() {
			visit(child)
		}
	}
	visit(doc.Root())
	return markers
}

func newMarker(el *etree.Element, name, storyID string, opts ScanOptions) Marker {
	m := Marker{
		Name:      name,
		ElementID: idml.Self(el),
		Ref:       el.SelectAttrValue("XMLContent", ""),
		StoryID:   storyID,
	}

	m.Type = opts.guessType(name)
	for _, attr := range el.SelectElements("XMLAttribute") {
		if attr.SelectAttrValue("Name", "") != opts.TypeAttribute {
			continue
		}
		if t, err := common.ParseTagType(strings.ToLower(strings.TrimSpace(attr.SelectAttrValue("Value", "")))); err == nil {
			m.Type, m.Explicit = t, true
		}
	}

	switch m.Type {
	case common.TagTypeText:
		m.Content = Text(el)
	case common.TagTypeImage:
		if len(m.Ref) == 0 {
			// inline graphic inside tagged range
			if frame := FindGraphicFrame(el); frame != nil {
				m.Ref = idml.Self(frame)
			}
		}
	}
	return m
}

var graphicFrames = map[string]bool{"Rectangle": true, "Oval": true, "Polygon": true}

// FindGraphicFrame returns first graphic frame nested into element.
func FindGraphicFrame(el *etree.Element) *etree.Element {
	for _, child := range el.ChildElements() {
		if graphicFrames[child.Tag] && len(idml.Self(child)) > 0 {
			return child
		}
		if found := FindGraphicFrame(child); found != nil {
			return found
		}
	}
	return nil
}

// Text returns text content of element: all Content descendants in document
// order, Br is line break.
func Text(el *etree.Element) string {
	var b strings.Builder
	var visit func(e *etree.Element)
	visit = func(e *etree.Element) {
		for _, child := range e.ChildElements() {
			switch child.Tag {
			case "Content":
				for _, tok := range child.Child {
					if cd, ok := tok.(*etree.CharData); ok {
						b.WriteString(cd.Data)
					}
				}
			case "Br":
				b.WriteByte('\n')
			case "Properties", "XMLAttribute":
			default:
				visit(child)
			}
		}
	}
	visit(el)
	return b.String()
}

// StoryTexts maps story identifier to its full text.
type StoryTexts map[string]string

// ScanFile parses package part and scans it. Text of the story root element
// is returned too.
func ScanFile(path, storyID string, opts ScanOptions) ([]Marker, string, error) {
	doc, err := idml.ReadXML(path)
	if err != nil {
		return nil, "", err
	}

	var text string
	if story := doc.Root().SelectElement("Story"); story != nil {
		text = Text(story)
	} else if doc.Root().Tag == "Story" {
		text = Text(doc.Root())
	}
	return Scan(doc, storyID, opts), text, nil
}

// ScanIndex scans all stories of the package in manifest order, backing story
// goes last.
func ScanIndex(ctx context.Context, idx *idml.Index, opts ScanOptions) ([]Marker, StoryTexts, error) {
	var (
		markers []Marker
		texts   = make(StoryTexts)
	)
	for _, part := range idx.ScanOrder() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		m, text, err := ScanFile(idx.Path(part.Src), part.ID, opts)
		if err != nil {
			return nil, nil, err
		}
		markers = append(markers, m...)
		texts[part.ID] = text
	}
	return markers, texts, nil
}
