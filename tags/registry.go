package tags

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"idmlfill/common"
)

// Tag is aggregated information about named tag.
type Tag struct {
	Name        string         `json:"name"`
	Type        common.TagType `json:"type"`
	Length      uint           `json:"length"`
	WordCount   uint           `json:"word_count"`
	SourceStory string         `json:"source_story"`
	InternalID  string         `json:"internal_id,omitempty"`
	Pages       []uint         `json:"pages"`
	// Content is captured text, kept for preview.
	Content     string `json:"content,omitempty"`
	Ref         string `json:"ref,omitempty"`
	Occurrences uint   `json:"occurrences"`
}

// Registry is the result of single extraction pass. It is never patched,
// new extraction produces new registry.
type Registry struct {
	Names       []string        `json:"tags"`
	Details     map[string]*Tag `json:"tags_details"`
	ExtractedAt time.Time       `json:"extracted_at"`
}

// PageLocator returns page numbers element of the story is placed on.
type PageLocator interface {
	Pages(storyID, elementID string) []uint
}

// WordCount counts whitespace delimited tokens.
func WordCount(s string) uint {
	return uint(len(strings.Fields(s)))
}

// Build aggregates markers into registry. First occurrence of the name
// defines type, content and origin, pages of all occurrences are joined.
func Build(markers []Marker, loc PageLocator, texts StoryTexts) *Registry {
	reg := &Registry{
		Details:     make(map[string]*Tag),
		ExtractedAt: time.Now().UTC(),
	}

	for _, m := range markers {
		story, element, content := m.StoryID, m.ElementID, m.Content

		switch {
		case m.Type == common.TagTypeImage:
			// graphic frame placement defines pages
			element = m.Ref
		case len(content) == 0 && len(m.Ref) > 0:
			if text, ok := texts[m.Ref]; ok {
				// whole story is tagged
				story, element, content = m.Ref, "", text
			}
		}

		var pages []uint
		if loc != nil {
			pages = loc.Pages(story, element)
		}

		if tag, exists := reg.Details[m.Name]; exists {
			tag.Pages = append(tag.Pages, pages...)
			tag.Occurrences++
			continue
		}

		tag := &Tag{
			Name:        m.Name,
			Type:        m.Type,
			SourceStory: story,
			InternalID:  m.ElementID,
			Pages:       slices.Clone(pages),
			Ref:         m.Ref,
			Occurrences: 1,
		}
		if m.Type == common.TagTypeText {
			tag.Content = content
			tag.Length = uint(utf8.RuneCountInString(content))
			tag.WordCount = WordCount(content)
		}
		reg.Details[m.Name] = tag
		reg.Names = append(reg.Names, m.Name)
	}

	for _, tag := range reg.Details {
		tag.Pages = normalizePages(tag.Pages)
	}
	return reg
}

func normalizePages(pages []uint) []uint {
	pages = slices.Clone(pages)
	slices.Sort(pages)
	pages = slices.Compact(pages)
	if pages == nil {
		pages = []uint{}
	}
	return pages
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Names)
}

func (r *Registry) Empty() bool {
	return r.Len() == 0
}

// Get returns tag by name.
func (r *Registry) Get(name string) (*Tag, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.Details[name]
	return t, ok
}

func (r *Registry) namesOf(typ common.TagType) []string {
	var res []string
	for _, n := range r.Names {
		if r.Details[n].Type == typ {
			res = append(res, n)
		}
	}
	return res
}

// TextTags returns names of text tags in scan order.
func (r *Registry) TextTags() []string {
	return r.namesOf(common.TagTypeText)
}

// ImageTags returns names of image tags in scan order.
func (r *Registry) ImageTags() []string {
	return r.namesOf(common.TagTypeImage)
}

// Equal compares registries ignoring order of names and pages and time of
// extraction.
func (r *Registry) Equal(other *Registry) bool {
	if r.Len() != other.Len() {
		return false
	}
	if r.Len() == 0 {
		return true
	}
	for name, a := range r.Details {
		b, ok := other.Details[name]
		if !ok {
			return false
		}
		if a.Type != b.Type || a.Length != b.Length || a.WordCount != b.WordCount {
			return false
		}
		if !slices.Equal(normalizePages(a.Pages), normalizePages(b.Pages)) {
			return false
		}
	}
	return true
}
