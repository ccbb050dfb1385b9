// Package engine is the surface external callers drive: extraction and export
// requests, saved mappings and template invalidation. Engine keeps no global
// state, everything it needs is passed to New.
package engine

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"idmlfill/common"
	"idmlfill/config"
	"idmlfill/content"
	"idmlfill/content/text"
	"idmlfill/export"
	"idmlfill/mapping"
	"idmlfill/store"
	"idmlfill/tags"
)

// Extraction actions.
const (
	ActionExtracted = "extracted"
	ActionLoaded    = "loaded"
)

type ExtractRequest struct {
	TemplateID string `json:"template_id"`
	Convention string `json:"tag_convention,omitempty"`
	Force      bool   `json:"force,omitempty"`
}

type ExtractResponse struct {
	Tags    []string             `json:"tags"`
	Details map[string]*tags.Tag `json:"tags_details"`
	Action  string               `json:"action"`
}

// ExportRequest refers either to registered template or directly to package
// file. When Batch is nil mapping saved for publication is used.
type ExportRequest struct {
	TemplateID    string         `json:"template_id,omitempty"`
	PackagePath   string         `json:"package,omitempty"`
	PublicationID string         `json:"publication_id,omitempty"`
	Title         string         `json:"title,omitempty"`
	Batch         *mapping.Batch `json:"mapping,omitempty"`
	Overwrite     bool           `json:"overwrite,omitempty"`
}

type ExportResponse struct {
	DownloadURL string             `json:"download_url"`
	Path        string             `json:"path"`
	UsedTags    []string           `json:"used_tags"`
	Warnings    []mapping.Warning  `json:"warnings,omitempty"`
	Conflicts   []mapping.Conflict `json:"conflicts,omitempty"`
}

type Engine struct {
	cfg       *config.Config
	kv        store.KV
	templates content.TemplateSource
	items     content.ItemSource
	files     content.AttachmentSource
	log       *zap.Logger
	rpt       *config.Report

	jobOpts []export.Option
	cp      encoding.Encoding

	splitterOnce sync.Once
	splitter     *text.Splitter

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(cfg *config.Config, kv store.KV, templates content.TemplateSource, items content.ItemSource, files content.AttachmentSource, log *zap.Logger, rpt *config.Report) *Engine {
	return &Engine{
		cfg:       cfg,
		kv:        kv,
		templates: templates,
		items:     items,
		files:     files,
		log:       log.Named("engine"),
		rpt:       rpt,
		locks:     make(map[string]*sync.Mutex),
	}
}

// JobOptions are applied to every export job engine creates.
func (e *Engine) JobOptions(opts ...export.Option) {
	e.jobOpts = append(e.jobOpts, opts...)
}

// CodePage forces decoding of non UTF-8 entry names in packages.
func (e *Engine) CodePage(cp encoding.Encoding) {
	e.cp = cp
	e.jobOpts = append(e.jobOpts, export.WithCodePage(cp))
}

// lock serializes registry access for the template.
func (e *Engine) lock(templateID string) func() {
	e.mu.Lock()
	l, ok := e.locks[templateID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[templateID] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (e *Engine) sentenceSplitter() *text.Splitter {
	e.splitterOnce.Do(func() {
		e.splitter = text.NewSplitter(e.log)
	})
	return e.splitter
}

func (e *Engine) template(ctx context.Context, id string) (*content.Template, string, error) {
	if len(id) == 0 {
		return nil, "", common.Errorf(common.ErrorKindValidation, "no template specified")
	}
	tpl, err := e.templates.Template(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if tpl.Convention != common.TagConventionTagBased {
		return nil, "", common.Errorf(common.ErrorKindValidation, "template %q uses unsupported tag convention %q", id, tpl.Convention)
	}
	if len(tpl.Archive) == 0 {
		return nil, "", common.Errorf(common.ErrorKindNotFound, "template %q has no package attached", id)
	}
	path, err := e.files.AttachmentPath(ctx, tpl.Archive)
	if err != nil {
		return nil, "", err
	}
	return tpl, path, nil
}

// OnExtractRequested returns tags of the template. Cached registry is returned
// unless extraction is forced, what happens when cache is empty depends on
// configured cache policy.
func (e *Engine) OnExtractRequested(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	if len(req.Convention) > 0 && req.Convention != common.TagConventionTagBased {
		return nil, common.Errorf(common.ErrorKindValidation, "unsupported tag convention %q", req.Convention)
	}
	tpl, path, err := e.template(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	log := e.log.With(zap.String("template", tpl.ID))

	unlock := e.lock(tpl.ID)
	defer unlock()

	if !req.Force {
		reg, err := store.LoadRegistry(ctx, e.kv, tpl.ID)
		switch {
		case err == nil && !reg.Empty():
			log.Debug("Cached tags loaded", zap.Int("tags", reg.Len()))
			return response(reg, ActionLoaded), nil
		case err != nil && !common.IsKind(err, common.ErrorKindNotFound):
			return nil, err
		}
		if e.cfg.Engine.CachePolicy == common.CachePolicyStrict {
			return nil, common.Errorf(common.ErrorKindNotFound, "no tags extracted for template %q yet", tpl.ID)
		}
		log.Info("Tag cache is empty, extracting")
	}

	reg, err := export.Extract(ctx, e.cfg, log, path, e.cp)
	if err != nil {
		return nil, err
	}
	if reg.Empty() {
		return nil, common.Errorf(common.ErrorKindNotFound, "no tags found in package of template %q", tpl.ID)
	}
	if err := store.SaveRegistry(ctx, e.kv, tpl.ID, reg); err != nil {
		return nil, err
	}
	e.rpt.StoreText("registry-"+tpl.ID+".txt", reg.String())
	log.Info("Tags extracted", zap.Int("tags", reg.Len()), zap.Strings("names", reg.Names))
	return response(reg, ActionExtracted), nil
}

func response(reg *tags.Registry, action string) *ExtractResponse {
	return &ExtractResponse{Tags: reg.Names, Details: reg.Details, Action: action}
}

// OnExportRequested produces delivery archive.
func (e *Engine) OnExportRequested(ctx context.Context, req ExportRequest) (*ExportResponse, error) {
	batch := req.Batch
	if batch == nil {
		if len(req.PublicationID) == 0 {
			return nil, common.Errorf(common.ErrorKindValidation, "neither mapping nor publication specified")
		}
		var err error
		if batch, err = store.LoadMapping(ctx, e.kv, req.PublicationID); err != nil {
			return nil, err
		}
	}

	in := export.Input{
		Package:       req.PackagePath,
		TemplateID:    req.TemplateID,
		PublicationID: req.PublicationID,
		Title:         req.Title,
		Batch:         batch,
		Items:         e.items,
		Files:         e.files,
		Overwrite:     req.Overwrite,
	}

	switch {
	case len(req.TemplateID) > 0:
		tpl, path, err := e.template(ctx, req.TemplateID)
		if err != nil {
			return nil, err
		}
		in.Package = path
		if len(in.Title) == 0 {
			in.Title = tpl.Title
		}
		if in.Registry, err = e.cachedRegistry(ctx, tpl.ID); err != nil {
			return nil, err
		}
	case len(req.PackagePath) == 0:
		return nil, common.Errorf(common.ErrorKindValidation, "neither template nor package specified")
	}

	opts := append([]export.Option{export.WithSplitter(e.sentenceSplitter())}, e.jobOpts...)
	job, err := export.NewJob(e.cfg, e.log, e.rpt, opts...)
	if err != nil {
		return nil, err
	}
	res, err := job.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	return &ExportResponse{
		DownloadURL: res.DownloadURL,
		Path:        res.Path,
		UsedTags:    res.UsedTags,
		Warnings:    res.Warnings,
		Conflicts:   res.Conflicts,
	}, nil
}

// cachedRegistry returns registry of the template or nil if there is none, in
// which case export job scans package itself.
func (e *Engine) cachedRegistry(ctx context.Context, templateID string) (*tags.Registry, error) {
	unlock := e.lock(templateID)
	defer unlock()

	reg, err := store.LoadRegistry(ctx, e.kv, templateID)
	switch {
	case err == nil && !reg.Empty():
		return reg, nil
	case err == nil, common.IsKind(err, common.ErrorKindNotFound):
		return nil, nil
	}
	return nil, err
}

// InvalidateTemplate drops cached tags, should be called when template
// package changes.
func (e *Engine) InvalidateTemplate(ctx context.Context, templateID string) error {
	if len(templateID) == 0 {
		return common.Errorf(common.ErrorKindValidation, "no template specified")
	}
	unlock := e.lock(templateID)
	defer unlock()

	if err := store.DeleteRegistry(ctx, e.kv, templateID); err != nil {
		return err
	}
	e.log.Info("Template cache invalidated", zap.String("template", templateID))
	return nil
}

func (e *Engine) SaveMapping(ctx context.Context, publicationID string, batch *mapping.Batch) error {
	if len(publicationID) == 0 {
		return common.Errorf(common.ErrorKindValidation, "no publication specified")
	}
	if batch == nil {
		return common.Errorf(common.ErrorKindValidation, "no mapping specified")
	}
	return store.SaveMapping(ctx, e.kv, publicationID, batch)
}

func (e *Engine) LoadMapping(ctx context.Context, publicationID string) (*mapping.Batch, error) {
	if len(publicationID) == 0 {
		return nil, common.Errorf(common.ErrorKindValidation, "no publication specified")
	}
	return store.LoadMapping(ctx, e.kv, publicationID)
}

func (e *Engine) DeleteMapping(ctx context.Context, publicationID string) error {
	if len(publicationID) == 0 {
		return common.Errorf(common.ErrorKindValidation, "no publication specified")
	}
	return store.DeleteMapping(ctx, e.kv, publicationID)
}

// Failure is what caller receives instead of response.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// FailureOf converts error into failure response. Details stay in the log.
func FailureOf(err error) *Failure {
	if err == nil {
		return nil
	}
	kind := "internal"
	switch k, ok := common.KindOf(err); {
	case ok:
		kind = k.String()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = "cancelled"
	}
	return &Failure{Kind: kind, Message: common.Message(err)}
}
