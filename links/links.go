// Package links maintains manifest of images staged into package link
// directory.
package links

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/beevik/etree"
	"github.com/maruel/natural"

	"idmlfill/common"
	"idmlfill/idml"
	"idmlfill/substitute"
)

// ManifestName is manifest file inside link directory.
const ManifestName = "Links.xml"

// Entry describes single linked image.
type Entry struct {
	Self   string
	Href   string
	Source string
	Format string
	Size   int64
}

// Rebuild creates or updates link manifest so it lists every staged image.
// Existing entries are kept, entries with the same href are replaced. Nothing
// is done for empty media map.
func Rebuild(root string, media substitute.MediaMap) error {
	if len(media) == 0 {
		return nil
	}

	dir := filepath.Join(root, idml.LinksDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to create link directory: %w", err)
	}

	path := filepath.Join(dir, ManifestName)
	entries, err := Read(path)
	if err != nil {
		return err
	}

	byHref := make(map[string]Entry, len(entries)+len(media))
	for _, e := range entries {
		byHref[e.Href] = e
	}
	for _, st := range media.Sorted() {
		e := Entry{
			Href:   st.Href(),
			Source: st.Source,
			Format: st.Format,
			Size:   st.Size,
		}
		if old, ok := byHref[e.Href]; ok {
			e.Self = old.Self
		}
		byHref[e.Href] = e
	}

	merged := make([]Entry, 0, len(byHref))
	for _, e := range byHref {
		merged = append(merged, e)
	}
	slices.SortFunc(merged, func(a, b Entry) int {
		switch {
		case a.Href == b.Href:
			return 0
		case natural.Less(a.Href, b.Href):
			return -1
		}
		return 1
	})
	return write(path, merged)
}

// Read returns entries of existing manifest, missing manifest is empty.
func Read(path string) ([]Entry, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	doc, err := idml.ReadXML(path)
	if err != nil {
		return nil, err
	}
	if doc.Root().Tag != "Links" {
		return nil, common.Errorf(common.ErrorKindFormat, "%s: unexpected root element %q", path, doc.Root().Tag)
	}

	var res []Entry
	for _, el := range doc.Root().SelectElements("Link") {
		e := Entry{
			Self:   el.SelectAttrValue("Self", ""),
			Href:   el.SelectAttrValue("href", ""),
			Source: el.SelectAttrValue("source", ""),
			Format: el.SelectAttrValue("format", ""),
		}
		if len(e.Href) == 0 {
			continue
		}
		e.Size, _ = strconv.ParseInt(el.SelectAttrValue("size", "0"), 10, 64)
		res = append(res, e)
	}
	return res, nil
}

func write(path string, entries []Entry) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("Links")

	used := make(map[string]bool)
	for _, e := range entries {
		if len(e.Self) > 0 {
			used[e.Self] = true
		}
	}
	next := 1
	for _, e := range entries {
		if len(e.Self) == 0 {
			for used["lnk"+strconv.Itoa(next)] {
				next++
			}
			e.Self = "lnk" + strconv.Itoa(next)
			used[e.Self] = true
		}
		el := root.CreateElement("Link")
		el.CreateAttr("Self", e.Self)
		el.CreateAttr("href", e.Href)
		if len(e.Source) > 0 {
			el.CreateAttr("source", filepath.Base(e.Source))
		}
		el.CreateAttr("format", e.Format)
		el.CreateAttr("size", strconv.FormatInt(e.Size, 10))
	}
	doc.Indent(2)
	return idml.WriteXML(doc, path)
}
