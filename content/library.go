package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"

	"idmlfill/common"
)

// Library keeps templates, items and attachments described by YAML file.
// It implements all collaborator interfaces and is read only after load.
type Library struct {
	Templates   []*Template   `yaml:"templates"`
	Items       []*Item       `yaml:"items"`
	Attachments []*Attachment `yaml:"attachments"`

	templates   map[string]*Template
	items       map[string]*Item
	attachments map[string]string
}

// LoadLibrary reads library file. Relative attachment paths are resolved
// against directory of the file.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.Errorf(common.ErrorKindNotFound, "library file %q: %w", path, err)
		}
		return nil, common.Errorf(common.ErrorKindIo, "unable to read library: %w", err)
	}
	lib, err := ParseLibrary(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("library %q: %w", path, err)
	}
	return lib, nil
}

// ParseLibrary decodes library, base is used for relative attachment paths.
func ParseLibrary(data []byte, base string) (*Library, error) {
	lib := &Library{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(lib); err != nil && !errors.Is(err, io.EOF) {
		return nil, common.Errorf(common.ErrorKindValidation, "unable to decode library: %w", err)
	}
	if err := lib.index(base); err != nil {
		return nil, err
	}
	return lib, nil
}

func (l *Library) index(base string) error {
	l.templates = make(map[string]*Template, len(l.Templates))
	for _, t := range l.Templates {
		if len(t.ID) == 0 {
			return common.Errorf(common.ErrorKindValidation, "template without id")
		}
		if _, dup := l.templates[t.ID]; dup {
			return common.Errorf(common.ErrorKindValidation, "duplicate template id %q", t.ID)
		}
		if len(t.Convention) == 0 {
			t.Convention = common.TagConventionTagBased
		}
		l.templates[t.ID] = t
	}

	l.items = make(map[string]*Item, len(l.Items))
	for _, it := range l.Items {
		if len(it.ID) == 0 {
			return common.Errorf(common.ErrorKindValidation, "item without id")
		}
		if _, dup := l.items[it.ID]; dup {
			return common.Errorf(common.ErrorKindValidation, "duplicate item id %q", it.ID)
		}
		l.items[it.ID] = it
	}

	l.attachments = make(map[string]string, len(l.Attachments))
	for _, a := range l.Attachments {
		if len(a.ID) == 0 || len(a.Path) == 0 {
			return common.Errorf(common.ErrorKindValidation, "attachment requires id and path")
		}
		if _, dup := l.attachments[a.ID]; dup {
			return common.Errorf(common.ErrorKindValidation, "duplicate attachment id %q", a.ID)
		}
		path := a.Path
		if !filepath.IsAbs(path) && len(base) > 0 {
			path = filepath.Join(base, path)
		}
		l.attachments[a.ID] = filepath.Clean(path)
	}
	return nil
}

func (l *Library) Template(_ context.Context, id string) (*Template, error) {
	if t, ok := l.templates[id]; ok {
		return t, nil
	}
	return nil, common.Errorf(common.ErrorKindNotFound, "template %q not found", id)
}

func (l *Library) Item(_ context.Context, id string) (*Item, error) {
	if it, ok := l.items[id]; ok {
		return it, nil
	}
	return nil, common.Errorf(common.ErrorKindNotFound, "content item %q not found", id)
}

// AttachmentPath returns path of the attachment, file existence is not
// checked here.
func (l *Library) AttachmentPath(_ context.Context, id string) (string, error) {
	if p, ok := l.attachments[id]; ok {
		return p, nil
	}
	return "", common.Errorf(common.ErrorKindNotFound, "attachment %q not found", id)
}
