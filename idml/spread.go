package idml

import (
	"math"
	"strconv"

	"github.com/beevik/etree"
)

// Page is a single page of a spread.
type Page struct {
	Self   string
	Name   string
	Number uint
	Spread string

	extent   Rect
	geometry bool
}

type spread struct {
	self  string
	pages []*Page
	// placements of every page item with identifier
	items map[string][]uint
	// text frames and their parent stories in document order
	frames     []string
	frameStory map[string]string
}

// pageNumber uses numeric page name when possible, document wide ordinal
// otherwise.
func pageNumber(name string, ordinal uint) uint {
	if n, err := strconv.ParseUint(name, 10, 32); err == nil && n > 0 {
		return uint(n)
	}
	return ordinal
}

// parseSpread collects pages and page items. ordinal is document wide page
// counter.
func parseSpread(root *etree.Element, ordinal *uint) *spread {
	sp := &spread{
		self:       Self(root),
		items:      make(map[string][]uint),
		frameStory: make(map[string]string),
	}

	for _, el := range root.SelectElements("Page") {
		*ordinal++
		p := &Page{
			Self:   Self(el),
			Name:   el.SelectAttrValue("Name", ""),
			Spread: sp.self,
		}
		p.Number = pageNumber(p.Name, *ordinal)
		m, _ := ParseMatrix(el.SelectAttrValue("ItemTransform", ""))
		p.extent, p.geometry = boundsRect(el.SelectAttrValue("GeometricBounds", ""), m)
		sp.pages = append(sp.pages, p)
	}

	for _, el := range root.ChildElements() {
		if el.Tag == "Page" || el.Tag == "Properties" {
			continue
		}
		sp.walk(el, Identity, nil)
	}
	return sp
}

func (sp *spread) walk(el *etree.Element, parent Matrix, inherited []uint) {
	self := Self(el)

	m, _ := ParseMatrix(el.SelectAttrValue("ItemTransform", ""))
	total := m.Then(parent)

	pages := inherited
	if rect, ok := anchorsRect(el, total); ok {
		pages = sp.locate(rect)
	} else if rect, ok := boundsRect(el.SelectAttrValue("GeometricBounds", ""), total); ok {
		pages = sp.locate(rect)
	}
	if pages == nil {
		pages = sp.allPages()
	}

	if len(self) > 0 {
		sp.items[self] = pages
		if el.Tag == "TextFrame" {
			if story := el.SelectAttrValue("ParentStory", ""); len(story) > 0 {
				sp.frames = append(sp.frames, self)
				sp.frameStory[self] = story
			}
		}
	}

	for _, child := range el.ChildElements() {
		if child.Tag == "Properties" {
			continue
		}
		sp.walk(child, total, pages)
	}
}

func (sp *spread) allPages() []uint {
	res := make([]uint, 0, len(sp.pages))
	for _, p := range sp.pages {
		res = append(res, p.Number)
	}
	return res
}

// locate finds page which horizontal extent contains centre of the rectangle,
// nearest page when none does.
func (sp *spread) locate(r Rect) []uint {
	cx := r.CenterX()

	var (
		nearest *Page
		best    = math.Inf(1)
	)
	for _, p := range sp.pages {
		if !p.geometry {
			continue
		}
		if p.extent.MinX <= cx && cx <= p.extent.MaxX {
			return []uint{p.Number}
		}
		d := math.Min(math.Abs(cx-p.extent.MinX), math.Abs(cx-p.extent.MaxX))
		if d < best {
			best, nearest = d, p
		}
	}
	if nearest != nil {
		return []uint{nearest.Number}
	}
	return nil
}
