package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"idmlfill/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	EngineConfig struct {
		// WorkDir is parent for job workspaces, system temporary directory if empty.
		WorkDir     string             `yaml:"work_dir,omitempty"`
		CachePolicy common.CachePolicy `yaml:"cache_policy" validate:"gte=0"`
		// StorePath is SQLite database keeping extracted tags and saved
		// mappings, in-memory store is used when empty.
		StorePath string `yaml:"store_path,omitempty" validate:"omitempty,filepath"`
		Library   string `yaml:"library,omitempty" validate:"omitempty,filepath"`
	}

	TagsConfig struct {
		Ignore        []string `yaml:"ignore" validate:"dive,required"`
		ImagePrefixes []string `yaml:"image_prefixes" validate:"dive,required"`
		TypeAttribute string   `yaml:"type_attribute" validate:"required"`
	}

	ImagesConfig struct {
		ConvertUnsupported bool `yaml:"convert_unsupported"`
		MaxDimension       int  `yaml:"max_dimension" validate:"gte=0"`
		JPEGQuality        int  `yaml:"jpeg_quality_level" validate:"min=40,max=100"`
	}

	ExportConfig struct {
		Destination  string       `yaml:"destination" sanitize:"path_clean" validate:"required"`
		BaseURL      string       `yaml:"base_url,omitempty" validate:"omitempty,url"`
		NameTemplate string       `yaml:"name_template" validate:"required"`
		FixZip       bool         `yaml:"fix_zip"`
		Overwrite    bool         `yaml:"overwrite"`
		Images       ImagesConfig `yaml:"images"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Engine    EngineConfig   `yaml:"engine"`
		Tags      TagsConfig     `yaml:"tags"`
		Export    ExportConfig   `yaml:"export"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above
	NameTemplateFieldName TemplateFieldName = "name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(NameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
