package idml

import (
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/beevik/etree"

	"idmlfill/common"
)

// Part is a package resource listed in the document manifest.
type Part struct {
	ID  string // Self of the resource root element
	Src string // slash separated path relative to package root
}

// Index describes extracted package structure.
type Index struct {
	root string

	Stories []Part
	Spreads []Part
	// Backing is story with document level XML structure, optional.
	Backing *Part
	// StoryToSpreads lists spreads placing text frames of the story.
	StoryToSpreads map[string][]string
	PageList       []*Page

	placements  map[string][]uint
	storyFrames map[string][]string
	elementPart map[string]string
}

// ReadManifest parses designmap.xml in package directory root and every story
// and spread it lists.
func ReadManifest(root string) (*Index, error) {
	doc, err := ReadXML(filepath.Join(root, DesignMap))
	if err != nil {
		return nil, err
	}
	if doc.Root().Tag != "Document" {
		return nil, common.Errorf(common.ErrorKindFormat, "unexpected manifest root element %q", doc.Root().FullTag())
	}

	idx := &Index{
		root:           root,
		StoryToSpreads: make(map[string][]string),
		placements:     make(map[string][]uint),
		storyFrames:    make(map[string][]string),
		elementPart:    make(map[string]string),
	}

	var stories, spreads []string
	var backing string
	for _, el := range doc.Root().ChildElements() {
		if el.Space != PackageSpace {
			continue
		}
		var list *[]string
		switch el.Tag {
		case "Story":
			list = &stories
		case "Spread":
			list = &spreads
		case "BackingStory":
		default:
			continue
		}
		src := el.SelectAttrValue("src", "")
		if len(src) == 0 || !safeSrc(src) {
			return nil, common.Errorf(common.ErrorKindFormat, "malformed manifest entry %s: src=%q", el.FullTag(), src)
		}
		if list == nil {
			backing = src
			continue
		}
		*list = append(*list, src)
	}
	if len(stories) == 0 {
		return nil, common.Errorf(common.ErrorKindFormat, "manifest does not list any stories")
	}

	for _, src := range stories {
		part, _, err := idx.readPart(src, "Story")
		if err != nil {
			return nil, err
		}
		idx.Stories = append(idx.Stories, part)
	}

	var ordinal uint
	for _, src := range spreads {
		part, root, err := idx.readPart(src, "Spread")
		if err != nil {
			return nil, err
		}
		idx.Spreads = append(idx.Spreads, part)
		idx.addSpread(part, parseSpread(root, &ordinal))
	}

	if len(backing) > 0 {
		part, _, err := idx.readPart(backing, "XmlStory")
		if err != nil {
			return nil, err
		}
		idx.Backing = &part
	}
	return idx, nil
}

func safeSrc(src string) bool {
	if path.IsAbs(src) || strings.HasPrefix(src, `\`) {
		return false
	}
	return !slices.Contains(strings.Split(src, "/"), "..")
}

// readPart parses resource and records identifiers of all its elements.
func (idx *Index) readPart(src, tag string) (Part, *etree.Element, error) {
	doc, err := ReadXML(idx.Path(src))
	if err != nil {
		return Part{}, nil, err
	}

	el := doc.Root()
	if el.Tag != tag || el.Space == PackageSpace {
		el = el.SelectElement(tag)
	}
	if el == nil {
		return Part{}, nil, common.Errorf(common.ErrorKindFormat, "%s does not contain %s element", src, tag)
	}

	part := Part{ID: Self(el), Src: src}
	if len(part.ID) == 0 {
		// Stories/Story_u1d4.xml -> u1d4
		base := strings.TrimSuffix(path.Base(src), path.Ext(src))
		if _, id, ok := strings.Cut(base, "_"); ok {
			part.ID = id
		} else {
			part.ID = base
		}
	}

	for _, e := range doc.Root().FindElements(".//*[@Self]") {
		if _, exists := idx.elementPart[Self(e)]; !exists {
			idx.elementPart[Self(e)] = src
		}
	}
	return part, el, nil
}

func (idx *Index) addSpread(part Part, sp *spread) {
	idx.PageList = append(idx.PageList, sp.pages...)
	for id, pages := range sp.items {
		idx.placements[id] = pages
	}
	for _, frame := range sp.frames {
		story := sp.frameStory[frame]
		idx.storyFrames[story] = append(idx.storyFrames[story], frame)
		if !slices.Contains(idx.StoryToSpreads[story], part.ID) {
			idx.StoryToSpreads[story] = append(idx.StoryToSpreads[story], part.ID)
		}
	}
}

// Root returns package directory.
func (idx *Index) Root() string {
	return idx.root
}

// Path converts package relative resource path into file system path.
func (idx *Index) Path(src string) string {
	return filepath.Join(idx.root, filepath.FromSlash(src))
}

// ScanOrder returns stories in manifest order followed by backing story.
func (idx *Index) ScanOrder() []Part {
	parts := slices.Clone(idx.Stories)
	if idx.Backing != nil {
		parts = append(parts, *idx.Backing)
	}
	return parts
}

// Story returns story part by identifier.
func (idx *Index) Story(id string) (Part, bool) {
	for _, p := range idx.ScanOrder() {
		if p.ID == id {
			return p, true
		}
	}
	return Part{}, false
}

// PartOf returns package resource which contains element with identifier id.
func (idx *Index) PartOf(id string) (string, bool) {
	src, ok := idx.elementPart[id]
	return src, ok
}

// Pages returns sorted page numbers element is placed on. Page items placed on
// spread directly are located by their geometry, for anything else pages of
// all text frames of the story are used.
func (idx *Index) Pages(storyID, elementID string) []uint {
	var res []uint
	if pages, ok := idx.placements[elementID]; ok && len(elementID) > 0 {
		res = append(res, pages...)
	} else {
		for _, frame := range idx.storyFrames[storyID] {
			res = append(res, idx.placements[frame]...)
		}
	}
	slices.Sort(res)
	return slices.Compact(res)
}
