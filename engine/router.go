package engine

import (
	"bytes"
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"idmlfill/common"
)

// Events engine subscribes to.
const (
	EventExtractRequested = "extract_requested"
	EventExportRequested  = "export_requested"
)

// Handler processes JSON encoded request and returns response to be encoded
// by router.
type Handler func(ctx context.Context, payload []byte) (any, error)

// Router dispatches caller requests to subscribed handlers.
type Router interface {
	Handle(event string, h Handler)
}

// Subscribe registers engine handlers with router.
func (e *Engine) Subscribe(r Router) {
	r.Handle(EventExtractRequested, func(ctx context.Context, payload []byte) (any, error) {
		var req ExtractRequest
		if err := decodeRequest(payload, &req); err != nil {
			return nil, err
		}
		resp, err := e.OnExtractRequested(ctx, req)
		if err != nil {
			e.log.Warn("Extraction failed", zap.String("template", req.TemplateID), zap.Error(err))
			return nil, err
		}
		return resp, nil
	})
	r.Handle(EventExportRequested, func(ctx context.Context, payload []byte) (any, error) {
		var req ExportRequest
		if err := decodeRequest(payload, &req); err != nil {
			return nil, err
		}
		resp, err := e.OnExportRequested(ctx, req)
		if err != nil {
			e.log.Warn("Export failed", zap.String("template", req.TemplateID), zap.String("publication", req.PublicationID), zap.Error(err))
			return nil, err
		}
		return resp, nil
	})
}

func decodeRequest(payload []byte, req any) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		if common.IsKind(err, common.ErrorKindValidation) {
			return err
		}
		return common.Errorf(common.ErrorKindValidation, "malformed request: %w", err)
	}
	return nil
}
