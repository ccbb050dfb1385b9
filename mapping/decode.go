package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/maruel/natural"

	"idmlfill/common"
)

// Decode is the only place where persisted or submitted mapping is
// interpreted. It accepts canonical list form
//
//	[{"item": "42", "elements": {"title": "headline", "content": [{"tag": "body", "start": 0}]}}]
//
// and legacy object form keyed by item id
//
//	{"42": {"title": "headline"}}
//
// where items are ordered by natural order of their ids. Chunks may be
// objects or bare tag names, offsets may be numbers, numeric strings or
// empty strings. Empty assignments are dropped.
func Decode(data []byte) (*Batch, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	b := &Batch{}
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return b, nil
	}
	if err != nil {
		return nil, invalid(err)
	}

	switch tok {
	case nil:
		// null
	case json.Delim('['):
		for dec.More() {
			m, err := decodeItem(dec)
			if err != nil {
				return nil, err
			}
			b.Items = append(b.Items, m)
		}
		if _, err := dec.Token(); err != nil {
			return nil, invalid(err)
		}
	case json.Delim('{'):
		for dec.More() {
			id, err := readKey(dec)
			if err != nil {
				return nil, err
			}
			elements, err := decodeElements(dec)
			if err != nil {
				return nil, fmt.Errorf("item %q: %w", id, err)
			}
			b.Items = append(b.Items, ItemMapping{ItemID: id, Elements: elements})
		}
		if _, err := dec.Token(); err != nil {
			return nil, invalid(err)
		}
		slices.SortStableFunc(b.Items, func(x, y ItemMapping) int {
			switch {
			case x.ItemID == y.ItemID:
				return 0
			case natural.Less(x.ItemID, y.ItemID):
				return -1
			}
			return 1
		})
	default:
		return nil, common.Errorf(common.ErrorKindValidation, "mapping must be a list or an object, got %v", tok)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, common.Errorf(common.ErrorKindValidation, "unexpected data after mapping")
	}

	seen := make(map[string]struct{}, len(b.Items))
	for _, it := range b.Items {
		if len(it.ItemID) == 0 {
			return nil, common.Errorf(common.ErrorKindValidation, "mapping item without id")
		}
		if _, dup := seen[it.ItemID]; dup {
			return nil, common.Errorf(common.ErrorKindValidation, "item %q is mapped twice", it.ItemID)
		}
		seen[it.ItemID] = struct{}{}
	}
	return b, nil
}

func invalid(err error) error {
	return common.Errorf(common.ErrorKindValidation, "malformed mapping: %w", err)
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", invalid(err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", common.Errorf(common.ErrorKindValidation, "unexpected token %v", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, d json.Delim, what string) error {
	tok, err := dec.Token()
	if err != nil {
		return invalid(err)
	}
	if tok != d {
		return common.Errorf(common.ErrorKindValidation, "%s: expected %v, got %v", what, d, tok)
	}
	return nil
}

func decodeItem(dec *json.Decoder) (ItemMapping, error) {
	var m ItemMapping
	if err := expectDelim(dec, '{', "mapping item"); err != nil {
		return m, err
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return m, err
		}
		switch key {
		case "item", "item_id", "id":
			tok, err := dec.Token()
			if err != nil {
				return m, invalid(err)
			}
			if m.ItemID, err = scalar(tok); err != nil {
				return m, fmt.Errorf("item id: %w", err)
			}
		case "elements", "mapping":
			if m.Elements, err = decodeElements(dec); err != nil {
				return m, fmt.Errorf("item %q: %w", m.ItemID, err)
			}
		default:
			return m, common.Errorf(common.ErrorKindValidation, "unknown mapping item field %q", key)
		}
	}
	_, err := dec.Token()
	if err != nil {
		return m, invalid(err)
	}
	return m, nil
}

func decodeElements(dec *json.Decoder) ([]ElementMapping, error) {
	if err := expectDelim(dec, '{', "elements"); err != nil {
		return nil, err
	}
	var res []ElementMapping
	for dec.More() {
		element, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		a, err := decodeAssignment(dec)
		if err != nil {
			return nil, fmt.Errorf("element %q: %w", element, err)
		}
		if a.IsZero() {
			continue
		}
		res = append(res, ElementMapping{Element: element, Assignment: a})
	}
	if _, err := dec.Token(); err != nil {
		return nil, invalid(err)
	}
	return res, nil
}

func decodeAssignment(dec *json.Decoder) (Assignment, error) {
	tok, err := dec.Token()
	if err != nil {
		return Assignment{}, invalid(err)
	}
	switch v := tok.(type) {
	case nil:
		return Assignment{}, nil
	case string:
		return Single(strings.TrimSpace(v)), nil
	case json.Delim:
		if v != '[' {
			return Assignment{}, common.Errorf(common.ErrorKindValidation, "assignment must be a tag or list of chunks")
		}
	default:
		return Assignment{}, common.Errorf(common.ErrorKindValidation, "assignment must be a tag or list of chunks, got %v", tok)
	}

	var chunks []Chunk
	for dec.More() {
		c, err := decodeChunk(dec)
		if err != nil {
			return Assignment{}, fmt.Errorf("chunk %d: %w", len(chunks), err)
		}
		if len(c.Tag) > 0 {
			chunks = append(chunks, c)
		}
	}
	if _, err := dec.Token(); err != nil {
		return Assignment{}, invalid(err)
	}
	return Chunked(chunks...), nil
}

func decodeChunk(dec *json.Decoder) (Chunk, error) {
	var c Chunk
	tok, err := dec.Token()
	if err != nil {
		return c, invalid(err)
	}
	switch v := tok.(type) {
	case string:
		// legacy form: list of tag names
		c.Tag = strings.TrimSpace(v)
		return c, nil
	case json.Delim:
		if v != '{' {
			return c, common.Errorf(common.ErrorKindValidation, "chunk must be an object or tag name")
		}
	default:
		return c, common.Errorf(common.ErrorKindValidation, "chunk must be an object or tag name, got %v", tok)
	}

	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return c, err
		}
		tok, err := dec.Token()
		if err != nil {
			return c, invalid(err)
		}
		switch key {
		case "tag":
			s, err := scalar(tok)
			if err != nil {
				return c, fmt.Errorf("tag: %w", err)
			}
			c.Tag = strings.TrimSpace(s)
		case "start":
			if c.Start, err = offset(tok); err != nil {
				return c, fmt.Errorf("start: %w", err)
			}
		case "end":
			if c.End, err = offset(tok); err != nil {
				return c, fmt.Errorf("end: %w", err)
			}
		default:
			return c, common.Errorf(common.ErrorKindValidation, "unknown chunk field %q", key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return c, invalid(err)
	}
	if c.Start != nil && c.End != nil && *c.End < *c.Start {
		return c, common.Errorf(common.ErrorKindValidation, "chunk %q ends (%d) before it starts (%d)", c.Tag, *c.End, *c.Start)
	}
	return c, nil
}

func scalar(tok json.Token) (string, error) {
	switch v := tok.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	}
	return "", common.Errorf(common.ErrorKindValidation, "expected string or number, got %v", tok)
}

func offset(tok json.Token) (*int, error) {
	var s string
	switch v := tok.(type) {
	case nil:
		return nil, nil
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
		if len(s) == 0 {
			return nil, nil
		}
	default:
		return nil, common.Errorf(common.ErrorKindValidation, "offset must be a number, got %v", tok)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, common.Errorf(common.ErrorKindValidation, "offset %q is not an integer", s)
	}
	if n < 0 {
		return nil, common.Errorf(common.ErrorKindValidation, "offset %d is negative", n)
	}
	return &n, nil
}
