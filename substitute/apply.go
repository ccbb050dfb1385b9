// Package substitute writes resolved values into extracted package: text of
// tagged elements is replaced and tagged graphic frames are pointed to
// staged images.
package substitute

import (
	"context"
	"slices"
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"idmlfill/common"
	"idmlfill/idml"
	"idmlfill/mapping"
	"idmlfill/tags"
)

type Options struct {
	ConvertUnsupported bool
	MaxDimension       int
	JPEGQuality        int
	Log                *zap.Logger
}

type frameTarget struct {
	tag    string
	ref    string
	source string
}

type applier struct {
	idx    *idml.Index
	res    *mapping.Resolution
	log    *zap.Logger
	stager *stager

	stories map[string]string // story id -> text
	frames  []frameTarget
	found   map[string]bool
	ids     map[string]bool
}

// Apply rewrites package parts under root according to resolution and
// returns images staged into link directory. Every rewritten part is checked
// to be well formed before it replaces the original.
func Apply(ctx context.Context, root string, idx *idml.Index, res *mapping.Resolution, opts Options) (MediaMap, error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 90
	}

	a := &applier{
		idx:     idx,
		res:     res,
		log:     opts.Log,
		stager:  newStager(root, opts),
		stories: make(map[string]string),
		found:   make(map[string]bool),
		ids:     make(map[string]bool),
	}
	if res.Empty() {
		return a.stager.media, nil
	}

	for _, part := range idx.ScanOrder() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := a.rewritePart(part); err != nil {
			return nil, err
		}
	}

	ids := make([]string, 0, len(a.stories))
	for id := range a.stories {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := a.rewriteStory(id, a.stories[id]); err != nil {
			return nil, err
		}
	}

	if err := a.relinkFrames(ctx); err != nil {
		return nil, err
	}

	for _, name := range res.UsedTags {
		_, text := res.Text[name]
		_, image := res.Images[name]
		if (text || image) && !a.found[name] {
			a.log.Warn("Tag not found in package, value ignored", zap.String("tag", name))
		}
	}
	return a.stager.media, nil
}

func (a *applier) rewritePart(part idml.Part) error {
	path := a.idx.Path(part.Src)
	doc, err := idml.ReadXML(path)
	if err != nil {
		return err
	}

	changed := false
	for _, el := range doc.FindElements("//XMLElement") {
		name, ok := tags.TagName(el)
		if !ok {
			continue
		}
		ref := el.SelectAttrValue("XMLContent", "")

		if value, ok := a.res.Text[name]; ok {
			a.found[name] = true
			if outer, nested := a.replacedAncestor(el); nested {
				a.log.Warn("Tag is nested in replaced tag, outer text is placed around it",
					zap.String("tag", name), zap.String("outer", outer), zap.String("part", part.Src))
			}
			if contents, _ := collect(el); len(contents) == 0 && len(ref) > 0 {
				if _, isStory := a.idx.Story(ref); isStory {
					a.stories[ref] = value
					continue
				}
			}
			ReplaceText(el, value)
			changed = true
			a.log.Debug("Text replaced", zap.String("tag", name), zap.String("element", idml.Self(el)), zap.String("part", part.Src))
			continue
		}

		if source, ok := a.res.Images[name]; ok {
			a.found[name] = true
			if len(ref) == 0 {
				if frame := tags.FindGraphicFrame(el); frame != nil {
					ref = idml.Self(frame)
				}
			}
			if len(ref) == 0 {
				a.log.Warn("Image tag does not reference graphic frame", zap.String("tag", name), zap.String("part", part.Src))
				continue
			}
			a.frames = append(a.frames, frameTarget{tag: name, ref: ref, source: source})
		}
	}

	if !changed {
		return nil
	}
	return idml.WriteXML(doc, path)
}

// replacedAncestor reports closest enclosing tag which also gets text value.
func (a *applier) replacedAncestor(el *etree.Element) (string, bool) {
	for p := el.Parent(); p != nil; p = p.Parent() {
		if name, ok := tags.TagName(p); ok {
			if _, mapped := a.res.Text[name]; mapped {
				return name, true
			}
		}
	}
	return "", false
}

func (a *applier) rewriteStory(id, value string) error {
	part, _ := a.idx.Story(id)
	path := a.idx.Path(part.Src)
	doc, err := idml.ReadXML(path)
	if err != nil {
		return err
	}
	story := doc.Root()
	if story.Tag != "Story" {
		story = story.SelectElement("Story")
	}
	if story == nil {
		return common.Errorf(common.ErrorKindFormat, "%s has no story element", part.Src)
	}
	ReplaceText(story, value)
	a.log.Debug("Story replaced", zap.String("story", id))
	return idml.WriteXML(doc, path)
}

func (a *applier) relinkFrames(ctx context.Context) error {
	if len(a.frames) == 0 {
		return nil
	}

	docs := make(map[string]*etree.Document)
	var order []string
	for _, ft := range a.frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, ok := a.idx.PartOf(ft.ref)
		if !ok {
			return common.Errorf(common.ErrorKindFormat, "graphic frame %q of tag %q is not found in package", ft.ref, ft.tag)
		}
		doc, ok := docs[src]
		if !ok {
			var err error
			if doc, err = idml.ReadXML(a.idx.Path(src)); err != nil {
				return err
			}
			docs[src] = doc
			order = append(order, src)
		}

		frame := findSelf(doc.Root(), ft.ref)
		if frame == nil {
			return common.Errorf(common.ErrorKindFormat, "graphic frame %q of tag %q is not found in %s", ft.ref, ft.tag, src)
		}
		if !IsGraphicFrame(frame) {
			a.log.Warn("Image tag references element which is not a graphic frame, skipping",
				zap.String("tag", ft.tag), zap.String("element", ft.ref), zap.String("kind", frame.Tag))
			continue
		}

		st, err := a.stager.stage(ft.source)
		if err != nil {
			return err
		}
		Relink(frame, st, a.newID)
		a.log.Debug("Frame relinked", zap.String("tag", ft.tag), zap.String("frame", ft.ref), zap.String("href", st.Href()))
	}

	for _, src := range order {
		if err := idml.WriteXML(docs[src], a.idx.Path(src)); err != nil {
			return err
		}
	}
	return nil
}

// newID returns identifier not used anywhere in the package.
func (a *applier) newID(base string) string {
	id := base
	for i := 1; ; i++ {
		if _, used := a.idx.PartOf(id); !used && !a.ids[id] {
			a.ids[id] = true
			return id
		}
		id = base + strconv.Itoa(i)
	}
}

func findSelf(el *etree.Element, id string) *etree.Element {
	if idml.Self(el) == id {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findSelf(child, id); found != nil {
			return found
		}
	}
	return nil
}
