// Package mapping holds assignments of content item fields to template tags
// and resolves them into literal values ready for substitution.
package mapping

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"
)

// Chunk is a part of a field value placed into its own tag. Offsets are in
// characters, half open, nil means "not set".
type Chunk struct {
	Tag   string
	Start *int
	End   *int
}

// Assignment is either a single tag or ordered list of chunks, never both.
type Assignment struct {
	tag    string
	chunks []Chunk
}

func Single(tag string) Assignment {
	return Assignment{tag: tag}
}

func Chunked(chunks ...Chunk) Assignment {
	return Assignment{chunks: slices.Clone(chunks)}
}

func (a Assignment) IsChunked() bool {
	return len(a.chunks) > 0
}

// Tag returns tag of single assignment, empty for chunked one.
func (a Assignment) Tag() string {
	return a.tag
}

func (a Assignment) Chunks() []Chunk {
	return a.chunks
}

// Tags lists all tags referenced by assignment in order.
func (a Assignment) Tags() []string {
	if !a.IsChunked() {
		if len(a.tag) == 0 {
			return nil
		}
		return []string{a.tag}
	}
	res := make([]string, 0, len(a.chunks))
	for _, c := range a.chunks {
		res = append(res, c.Tag)
	}
	return res
}

func (a Assignment) IsZero() bool {
	return len(a.tag) == 0 && len(a.chunks) == 0
}

// MarshalJSON writes single assignment as a string and chunked one as a list
// of {"tag","start","end"} objects.
func (a Assignment) MarshalJSON() ([]byte, error) {
	if !a.IsChunked() {
		return json.Marshal(a.tag)
	}
	type chunk struct {
		Tag   string `json:"tag"`
		Start *int   `json:"start,omitempty"`
		End   *int   `json:"end,omitempty"`
	}
	out := make([]chunk, 0, len(a.chunks))
	for _, c := range a.chunks {
		out = append(out, chunk(c))
	}
	return json.Marshal(out)
}

type ElementMapping struct {
	Element    string
	Assignment Assignment
}

// ItemMapping is assignment of item fields, element order is kept.
type ItemMapping struct {
	ItemID   string
	Elements []ElementMapping
}

// MarshalJSON produces {"item": id, "elements": {...}} keeping element order.
func (m ItemMapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"item":`)
	buf.WriteString(strconv.Quote(m.ItemID))
	buf.WriteString(`,"elements":{`)
	for i, e := range m.Elements {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Element)
		if err != nil {
			return nil, err
		}
		val, err := e.Assignment.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// Batch is everything considered for one export. Order of items is the
// precedence order: later assignments win.
type Batch struct {
	Items []ItemMapping
}

func (b *Batch) MarshalJSON() ([]byte, error) {
	if b == nil || b.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b.Items)
}

func (b *Batch) UnmarshalJSON(data []byte) error {
	nb, err := Decode(data)
	if err != nil {
		return err
	}
	*b = *nb
	return nil
}

func (b *Batch) Empty() bool {
	return b == nil || len(b.Items) == 0
}

// Item returns mapping of the item.
func (b *Batch) Item(id string) (*ItemMapping, bool) {
	if b == nil {
		return nil, false
	}
	for i := range b.Items {
		if b.Items[i].ItemID == id {
			return &b.Items[i], true
		}
	}
	return nil, false
}

// UsedTags returns distinct tags referenced across the batch in first seen
// order.
func (b *Batch) UsedTags() []string {
	if b == nil {
		return nil
	}
	var (
		res  []string
		seen = make(map[string]struct{})
	)
	for _, it := range b.Items {
		for _, e := range it.Elements {
			for _, t := range e.Assignment.Tags() {
				if _, ok := seen[t]; ok || len(t) == 0 {
					continue
				}
				seen[t] = struct{}{}
				res = append(res, t)
			}
		}
	}
	return res
}
