package store

import (
	"context"
	"encoding/json"
	"errors"

	"idmlfill/common"
	"idmlfill/mapping"
	"idmlfill/tags"
)

const (
	registryPrefix = "tags/"
	mappingPrefix  = "mapping/"
)

// LoadRegistry returns cached registry of the template.
func LoadRegistry(ctx context.Context, kv KV, templateID string) (*tags.Registry, error) {
	data, err := kv.Get(ctx, registryPrefix+templateID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, common.Errorf(common.ErrorKindNotFound, "no cached tags for template %q: %w", templateID, err)
		}
		return nil, common.Errorf(common.ErrorKindIo, "unable to load tags of template %q: %w", templateID, err)
	}

	reg := &tags.Registry{}
	if err := json.Unmarshal(data, reg); err != nil {
		return nil, common.Errorf(common.ErrorKindFormat, "cached tags of template %q are damaged: %w", templateID, err)
	}
	if reg.Details == nil {
		reg.Details = make(map[string]*tags.Tag)
	}
	for _, name := range reg.Names {
		if _, ok := reg.Details[name]; !ok {
			return nil, common.Errorf(common.ErrorKindFormat, "cached tags of template %q are damaged: no details for %q", templateID, name)
		}
	}
	return reg, nil
}

// SaveRegistry replaces cached registry of the template as a whole.
func SaveRegistry(ctx context.Context, kv KV, templateID string, reg *tags.Registry) error {
	data, err := json.Marshal(reg)
	if err != nil {
		return common.Errorf(common.ErrorKindFormat, "unable to encode tags: %w", err)
	}
	if err := kv.Set(ctx, registryPrefix+templateID, data); err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to save tags of template %q: %w", templateID, err)
	}
	return nil
}

func DeleteRegistry(ctx context.Context, kv KV, templateID string) error {
	if err := kv.Delete(ctx, registryPrefix+templateID); err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to delete tags of template %q: %w", templateID, err)
	}
	return nil
}

// LoadMapping returns saved mapping of the publication. Whatever form it was
// saved in is decoded here.
func LoadMapping(ctx context.Context, kv KV, publicationID string) (*mapping.Batch, error) {
	data, err := kv.Get(ctx, mappingPrefix+publicationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, common.Errorf(common.ErrorKindNotFound, "no mapping saved for publication %q: %w", publicationID, err)
		}
		return nil, common.Errorf(common.ErrorKindIo, "unable to load mapping of publication %q: %w", publicationID, err)
	}
	return mapping.Decode(data)
}

func SaveMapping(ctx context.Context, kv KV, publicationID string, batch *mapping.Batch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return common.Errorf(common.ErrorKindFormat, "unable to encode mapping: %w", err)
	}
	if err := kv.Set(ctx, mappingPrefix+publicationID, data); err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to save mapping of publication %q: %w", publicationID, err)
	}
	return nil
}

func DeleteMapping(ctx context.Context, kv KV, publicationID string) error {
	if err := kv.Delete(ctx, mappingPrefix+publicationID); err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to delete mapping of publication %q: %w", publicationID, err)
	}
	return nil
}
