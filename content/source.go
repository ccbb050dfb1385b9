// Package content describes read-only collaborators the engine consumes:
// content items, document templates and attachment storage.
package content

import (
	"context"
	"time"
)

// Template is a source package registered with the engine.
type Template struct {
	ID         string `yaml:"id"`
	Title      string `yaml:"title"`
	Archive    string `yaml:"archive"` // attachment id of the package
	Convention string `yaml:"convention,omitempty"`
}

// Item is a content record placed into template.
type Item struct {
	ID         string    `yaml:"id"`
	Title      string    `yaml:"title"`
	Body       string    `yaml:"body,omitempty"` // HTML
	Excerpt    string    `yaml:"excerpt,omitempty"`
	Categories []string  `yaml:"categories,omitempty"`
	Thumbnail  string    `yaml:"thumbnail,omitempty"` // attachment id
	Date       time.Time `yaml:"date,omitempty"`
}

// Attachment is stored binary file.
type Attachment struct {
	ID   string `yaml:"id"`
	Path string `yaml:"path"`
}

type ItemSource interface {
	Item(ctx context.Context, id string) (*Item, error)
}

type TemplateSource interface {
	Template(ctx context.Context, id string) (*Template, error)
}

// AttachmentSource resolves attachment id to local file path.
type AttachmentSource interface {
	AttachmentPath(ctx context.Context, id string) (string, error)
}
