package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/querybridge/querybridge/internal/backend"
	"github.com/querybridge/querybridge/internal/docstore"
	"github.com/querybridge/querybridge/internal/translate"
	"github.com/querybridge/querybridge/internal/ws"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": len(s.registry.Names()),
	})
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	out := []ConnectionResponse{}
	for _, name := range s.registry.Names() {
		c, _ := s.registry.Connection(name)
		out = append(out, ConnectionResponse{
			Name:     c.Name,
			Type:     c.Type,
			Default:  c.Name == s.registry.Default(),
			Open:     s.registry.Open(c.Name),
			ReadOnly: c.ReadOnly,
		})
	}
	jsonResponse(w, http.StatusOK, out)
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	b, ok := s.backend(w, r)
	if !ok {
		return
	}
	cat, err := b.Resources(ctx)
	if err != nil {
		s.fail(w, r, fmt.Errorf("listing resources: %w", err))
		return
	}
	jsonResponse(w, http.StatusOK, cat)
}

func (s *Server) handleDescribeResource(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	b, ok := s.backend(w, r)
	if !ok {
		return
	}
	res, err := b.Describe(ctx, r.PathValue("resource"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("describing %s: %w", r.PathValue("resource"), err))
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	s.runTool(w, r, "query", backend.Backend.Query)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	s.runTool(w, r, "execute", backend.Backend.Execute)
}

type toolFunc func(b backend.Backend, ctx context.Context, text string, params []any) (*backend.Result, error)

func (s *Server) runTool(w http.ResponseWriter, r *http.Request, tool string, call toolFunc) {
	start := time.Now()
	name := r.PathValue("name")
	activity := ws.NewActivity(name, tool)

	req, err := decodeToolRequest(r)
	if err != nil {
		errorResponse(w, r, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}

	b, ok := s.backend(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	res, err := call(b, ctx, req.Query, req.Params)

	activity.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		_, kind := classify(err)
		activity.Status, activity.ErrorKind, activity.Error = "error", kind, err.Error()
		recordCall(tool, name, "error", start)
		s.publish(activity)
		s.fail(w, r, err)
		return
	}
	recordCall(tool, name, "ok", start)
	activity.Items, activity.Affected = len(res.Items), res.Affected
	s.publish(activity)

	items := res.Items
	if items == nil {
		items = []json.RawMessage{}
	}
	jsonResponse(w, http.StatusOK, ToolResponse{
		Connection: name,
		Items:      items,
		Count:      len(items),
		Affected:   res.Affected,
		RequestID:  RequestID(r.Context()),
		DurationMS: activity.DurationMS,
	})
}

// handleTranslate previews the canonical command without calling a store.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, err := decodeToolRequest(r)
	if err != nil {
		errorResponse(w, r, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}
	mode, err := translate.ParseMode(req.Mode)
	if err != nil {
		errorResponse(w, r, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}

	cmd, err := translate.Parse(req.Query, req.Params, mode)
	if err != nil {
		recordCall("translate", "", "error", start)
		s.fail(w, r, err)
		return
	}
	doc, err := docstore.RenderCommand(cmd)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	recordCall("translate", "", "ok", start)
	activity := ws.NewActivity("", "translate")
	activity.DurationMS = time.Since(start).Milliseconds()
	s.publish(activity)

	jsonResponse(w, http.StatusOK, TranslateResponse{
		Route:      cmd.Kind(),
		Collection: cmd.Collection(),
		Method:     cmd.Method(),
		Command:    doc,
	})
}

func (s *Server) backend(w http.ResponseWriter, r *http.Request) (backend.Backend, bool) {
	name := r.PathValue("name")
	if _, ok := s.registry.Connection(name); !ok || name == "" {
		errorResponse(w, r, http.StatusNotFound, "UnknownConnection", fmt.Sprintf("unknown connection %q", name))
		return nil, false
	}
	b, err := s.registry.Get(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return b, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	recordRejection(kind)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "path", r.URL.Path, "kind", kind, "error", err, "request_id", RequestID(r.Context()))
	}
	errorResponse(w, r, status, kind, err.Error())
}

func (s *Server) publish(a ws.Activity) {
	if s.hub != nil {
		s.hub.Publish(a)
	}
}

// classify maps an error to an HTTP status and a kind name.
func classify(err error) (int, string) {
	if kind := translate.KindOf(err); kind != translate.KindUnknown {
		switch kind {
		case translate.UnsupportedMethod:
			return http.StatusUnprocessableEntity, kind.String()
		case translate.StoreOperationFailed:
			return http.StatusBadGateway, kind.String()
		default:
			return http.StatusBadRequest, kind.String()
		}
	}
	switch {
	case errors.Is(err, backend.ErrUnknownConnection):
		return http.StatusNotFound, "UnknownConnection"
	case errors.Is(err, backend.ErrReadOnly):
		return http.StatusForbidden, "ReadOnly"
	case errors.Is(err, backend.ErrNotReadStatement):
		return http.StatusBadRequest, "NotReadStatement"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Timeout"
	default:
		return http.StatusBadGateway, translate.StoreOperationFailed.String()
	}
}

func decodeToolRequest(r *http.Request) (*ToolRequest, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	var req ToolRequest
	if err := dec.Decode(&req); err != nil {
		return nil, errors.New("invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New("query is required")
	}
	req.Params = backend.NormalizeParams(req.Params)
	return &req, nil
}
