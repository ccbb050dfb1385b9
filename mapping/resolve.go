package mapping

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"idmlfill/common"
	"idmlfill/content"
	"idmlfill/content/text"
	"idmlfill/tags"
)

// Element names items could be mapped from.
const (
	ElementTitle      = "title"
	ElementContent    = "content"
	ElementExcerpt    = "excerpt"
	ElementCategories = "categories"
	ElementDate       = "date"
	ElementThumbnail  = "thumbnail"
)

var aliases = map[string]string{
	"body":           ElementContent,
	"featured_image": ElementThumbnail,
	"image":          ElementThumbnail,
}

// CanonicalElement returns canonical element name and kind of value it
// produces.
func CanonicalElement(name string) (string, common.TagType, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[name]; ok {
		name = a
	}
	switch name {
	case ElementTitle, ElementContent, ElementExcerpt, ElementCategories, ElementDate:
		return name, common.TagTypeText, true
	case ElementThumbnail:
		return name, common.TagTypeImage, true
	}
	return "", 0, false
}

type Options struct {
	Splitter     *text.Splitter
	DateLayout   string
	ExcerptWords int
	Log          *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		DateLayout:   "January 2, 2006",
		ExcerptWords: 20,
		Log:          zap.NewNop(),
	}
}

// Source names what produced tag value.
type Source struct {
	ItemID  string `json:"item"`
	Element string `json:"element"`
	Chunk   int    `json:"chunk,omitempty"`
}

// Conflict records tag value being overridden by later assignment.
type Conflict struct {
	Tag      string `json:"tag"`
	Previous Source `json:"previous"`
	Current  Source `json:"current"`
}

type Warning struct {
	Kind    common.WarningKind `json:"kind"`
	Tag     string             `json:"tag,omitempty"`
	ItemID  string             `json:"item,omitempty"`
	Element string             `json:"element,omitempty"`
	Msg     string             `json:"message"`
}

// Resolution is a set of literal values ready for substitution.
type Resolution struct {
	// UsedTags are distinct tags referenced across the whole batch.
	UsedTags []string `json:"used_tags"`
	// Text maps text tag to its final value.
	Text map[string]string `json:"text"`
	// Images maps image tag to source image file.
	Images    map[string]string `json:"images"`
	Sources   map[string]Source `json:"sources"`
	Conflicts []Conflict        `json:"conflicts,omitempty"`
	Warnings  []Warning         `json:"warnings,omitempty"`
}

func (r *Resolution) Empty() bool {
	return r == nil || len(r.Text)+len(r.Images) == 0
}

func (r *Resolution) warn(kind common.WarningKind, src Source, tag, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{
		Kind:    kind,
		Tag:     tag,
		ItemID:  src.ItemID,
		Element: src.Element,
		Msg:     fmt.Sprintf(format, args...),
	})
}

func (r *Resolution) record(tag string, src Source) {
	if prev, ok := r.Sources[tag]; ok {
		r.Conflicts = append(r.Conflicts, Conflict{Tag: tag, Previous: prev, Current: src})
	}
	r.Sources[tag] = src
}

func (r *Resolution) setText(tag, value string, src Source) {
	r.record(tag, src)
	r.Text[tag] = value
}

func (r *Resolution) setImage(tag, path string, src Source) {
	r.record(tag, src)
	r.Images[tag] = path
}

type resolver struct {
	reg   *tags.Registry
	items content.ItemSource
	files content.AttachmentSource
	opts  Options
	res   *Resolution
}

// Resolve turns batch into literal tag values. Items are processed in batch
// order and elements in mapping order, last value assigned to a tag wins and
// every override is reported as a conflict. Registry is used to check tag
// types and capacities, unknown tags are kept with a warning.
func Resolve(ctx context.Context, batch *Batch, reg *tags.Registry, items content.ItemSource, files content.AttachmentSource, opts Options) (*Resolution, error) {
	def := DefaultOptions()
	if opts.Log == nil {
		opts.Log = def.Log
	}
	if len(opts.DateLayout) == 0 {
		opts.DateLayout = def.DateLayout
	}
	if opts.ExcerptWords <= 0 {
		opts.ExcerptWords = def.ExcerptWords
	}
	r := &resolver{
		reg:   reg,
		items: items,
		files: files,
		opts:  opts,
		res: &Resolution{
			UsedTags: batch.UsedTags(),
			Text:     make(map[string]string),
			Images:   make(map[string]string),
			Sources:  make(map[string]Source),
		},
	}
	if batch == nil {
		return r.res, nil
	}

	for _, im := range batch.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.resolveItem(ctx, im); err != nil {
			return nil, err
		}
	}
	r.checkWordCounts()
	return r.res, nil
}

func (r *resolver) resolveItem(ctx context.Context, im ItemMapping) error {
	item, err := r.items.Item(ctx, im.ItemID)
	if err != nil {
		if _, ok := common.KindOf(err); !ok {
			err = common.Errorf(common.ErrorKindNotFound, "content item %q: %w", im.ItemID, err)
		}
		return err
	}

	for _, em := range im.Elements {
		element, kind, ok := CanonicalElement(em.Element)
		if !ok {
			return common.Errorf(common.ErrorKindValidation, "item %q: unknown element %q", im.ItemID, em.Element)
		}
		src := Source{ItemID: im.ItemID, Element: element}

		if kind == common.TagTypeImage {
			if em.Assignment.IsChunked() {
				return common.Errorf(common.ErrorKindValidation, "item %q: image element %q cannot be split into chunks", im.ItemID, em.Element)
			}
			if err := r.resolveImage(ctx, item, em.Assignment.Tag(), src); err != nil {
				return err
			}
			continue
		}

		value := r.fieldValue(item, element)
		if !em.Assignment.IsChunked() {
			if r.accept(em.Assignment.Tag(), common.TagTypeText, src) {
				r.res.setText(em.Assignment.Tag(), value, src)
			}
			continue
		}

		chunks := em.Assignment.Chunks()
		parts := Slice(value, chunks, r.capacity, r.opts.Splitter)
		for i, c := range chunks {
			src.Chunk = i
			if r.accept(c.Tag, common.TagTypeText, src) {
				r.res.setText(c.Tag, parts[i], src)
			}
		}
	}
	return nil
}

func (r *resolver) resolveImage(ctx context.Context, item *content.Item, tag string, src Source) error {
	if !r.accept(tag, common.TagTypeImage, src) {
		return nil
	}
	if len(item.Thumbnail) == 0 {
		r.res.warn(common.WarningKindMissingValue, src, tag, "item %q has no image, tag %q left intact", item.ID, tag)
		return nil
	}
	path, err := r.files.AttachmentPath(ctx, item.Thumbnail)
	if err != nil {
		if _, ok := common.KindOf(err); !ok {
			err = common.Errorf(common.ErrorKindNotFound, "attachment %q: %w", item.Thumbnail, err)
		}
		return err
	}
	r.res.setImage(tag, path, src)
	return nil
}

// accept checks assigned tag against registry.
func (r *resolver) accept(tag string, want common.TagType, src Source) bool {
	t, ok := r.reg.Get(tag)
	if !ok {
		r.res.warn(common.WarningKindUnknownTag, src, tag, "tag %q is not present in template", tag)
		r.opts.Log.Debug("Unknown tag assigned", zap.String("tag", tag), zap.String("item", src.ItemID), zap.String("element", src.Element))
		return true
	}
	if t.Type != want {
		r.res.warn(common.WarningKindTypeMismatch, src, tag, "%s element %q assigned to %s tag %q, skipped", want, src.Element, t.Type, tag)
		r.opts.Log.Warn("Tag type mismatch", zap.String("tag", tag), zap.Stringer("tag type", t.Type), zap.Stringer("value type", want))
		return false
	}
	return true
}

func (r *resolver) capacity(tag string) int {
	if t, ok := r.reg.Get(tag); ok {
		return int(t.Length)
	}
	return 0
}

func (r *resolver) fieldValue(item *content.Item, element string) string {
	switch element {
	case ElementTitle:
		return text.Plain(item.Title)
	case ElementContent:
		return text.Plain(item.Body)
	case ElementExcerpt:
		if excerpt := text.Plain(item.Excerpt); len(excerpt) > 0 {
			return excerpt
		}
		return text.TrimWords(text.Plain(item.Body), r.opts.ExcerptWords)
	case ElementCategories:
		return strings.Join(item.Categories, ", ")
	case ElementDate:
		if item.Date.IsZero() {
			return ""
		}
		return item.Date.Format(r.opts.DateLayout)
	}
	return ""
}

// checkWordCounts reports final values with more words than placeholder text
// of their tags had.
func (r *resolver) checkWordCounts() {
	for _, tag := range r.res.UsedTags {
		value, assigned := r.res.Text[tag]
		t, ok := r.reg.Get(tag)
		if !assigned || !ok || t.WordCount == 0 {
			continue
		}
		if words := tags.WordCount(value); words > t.WordCount {
			r.res.warn(common.WarningKindWordCount, r.res.Sources[tag], tag,
				"tag %q receives %d words, template placeholder has %d", tag, words, t.WordCount)
		}
	}
}
