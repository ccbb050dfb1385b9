package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"

	"idmlfill/config"
)

// DefaultNameTemplate names delivery archive when configuration does not.
const DefaultNameTemplate = `idmlfill-export-{{ slug .Title }}-{{ .Date }}`

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context       string
	Title         string
	Date          string
	Time          string
	PublicationID string
	TemplateID    string
	// Package is base name of the source package without extension.
	Package string
}

func buildValues(in *Input, now time.Time) Values {
	title := in.Title
	if len(title) == 0 {
		title = strings.TrimSuffix(filepath.Base(in.Package), filepath.Ext(in.Package))
	}
	return Values{
		Context:       string(config.NameTemplateFieldName),
		Title:         title,
		Date:          now.Format("2006-01-02"),
		Time:          now.Format("150405"),
		PublicationID: in.PublicationID,
		TemplateID:    in.TemplateID,
		Package:       strings.TrimSuffix(filepath.Base(in.Package), filepath.Ext(in.Package)),
	}
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	funcMap := sprig.FuncMap()
	funcMap["slug"] = slug.Make

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DeliveryName expands name template and returns file name of the delivery
// archive. Same values always produce the same name. When template cannot be
// expanded default template is used.
func DeliveryName(field string, values Values) (string, error) {
	if len(strings.TrimSpace(field)) == 0 {
		field = DefaultNameTemplate
	}
	name, err := expandTemplate(config.NameTemplateFieldName, field, values)
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		if name, err = expandTemplate(config.NameTemplateFieldName, DefaultNameTemplate, values); err != nil {
			return "", err
		}
	}
	return config.CleanFileName(strings.TrimSuffix(name, ".zip"), ".zip"), nil
}
