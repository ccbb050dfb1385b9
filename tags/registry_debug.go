package tags

import (
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/maruel/natural"

	"idmlfill/utils/debug"
)

// String returns readable dump of the registry, used for debug reports.
func (r *Registry) String() string {
	if r == nil {
		return "<nil Registry>"
	}

	tw := debug.NewTreeWriter()
	tw.Line(0, "Registry: %d tags, extracted %s", r.Len(), r.ExtractedAt.Format(time.RFC3339))
	tw.Line(1, "Text tags: %v", r.TextTags())
	tw.Line(1, "Image tags: %v", r.ImageTags())

	keys := slices.Collect(maps.Keys(r.Details))
	sort.Sort(natural.StringSlice(keys))
	for _, k := range keys {
		t := r.Details[k]
		tw.Line(1, "Tag[%q] type[%s] story[%q] id[%q] occurrences[%d]", k, t.Type, t.SourceStory, t.InternalID, t.Occurrences)
		tw.Line(2, "pages: %v", t.Pages)
		if len(t.Ref) > 0 {
			tw.Line(2, "ref: %s", t.Ref)
		}
		tw.Line(2, "length[%d] words[%d]", t.Length, t.WordCount)
		if len(t.Content) > 0 {
			tw.TextBlock(2, "content", debug.Preview(t.Content, 80))
		}
	}
	return tw.String()
}
