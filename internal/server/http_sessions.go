package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"resumebuilder/internal/errors"
	"resumebuilder/internal/form"
	"resumebuilder/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// previewFormats are the renderings accepted by the preview endpoint
const previewFormats = "json text markdown html"

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 {
		if err := parseJSONRequest(r, &req); err != nil {
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}
	}

	partial, err := parseFieldMap(req.Fields)
	if err != nil {
		writeAppError(w, err)
		return
	}

	sess := s.Sessions.Create()
	if err := sess.Apply(partial); err != nil {
		s.Sessions.Delete(sess.ID)
		writeAppError(w, err)
		return
	}

	s.Logger.Info("Session created", "session_id", sess.ID, "fields", len(partial))
	writeJSON(w, http.StatusCreated, sessionResponse(sess))
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.Sessions.Delete(id) {
		writeAppError(w, errors.NewNotFoundError(errors.ErrCodeSessionNotFound, "session not found"))
		return
	}
	s.Logger.Info("Session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// updateFieldsHandler applies a partial update. Edits are accepted while a
// request is in flight; only triggers are guarded by the busy flag.
func (s *Server) updateFieldsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var req UpdateFieldsRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	partial, err := parseFieldMap(req.Fields)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := sess.Apply(partial); err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

func (s *Server) previewHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if err := validate.Var(format, "oneof="+previewFormats); err != nil {
		writeErrorResponse(w, "Unsupported format", fmt.Sprintf("format must be one of: %s", previewFormats), http.StatusBadRequest)
		return
	}

	snap, err := s.Assistant.Preview(r.Context(), sess)
	if err != nil {
		writeAppError(w, err)
		return
	}

	if format == "json" {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	s.writeFormatted(w, snap, format)
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.Assistant.Export(r.Context(), sess, &buf); err != nil {
		writeAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.Assistant.Exporter().FileName()))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.Logger.LogError(err, "Failed to write exported document", "session_id", sess.ID)
	}
}

func (s *Server) importHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.Assistant.Import(r.Context(), sess, bytes.NewReader(body), int64(len(body))); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

func (s *Server) suggestHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	ctx, span := s.om.Tracer("resumebuilder.api").Start(r.Context(), "api.suggest")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sess.ID))

	result, err := s.Assistant.Suggest(ctx, sess)
	if err != nil {
		span.RecordError(err)
		writeAppError(w, err)
		return
	}
	s.writeResult(w, r, result)
}

func (s *Server) scoreHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	ctx, span := s.om.Tracer("resumebuilder.api").Start(r.Context(), "api.score")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sess.ID))

	result, err := s.Assistant.Score(ctx, sess)
	if err != nil {
		span.RecordError(err)
		writeAppError(w, err)
		return
	}
	span.SetAttributes(attribute.String("score", result.Score.String()))
	s.writeResult(w, r, result)
}

func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	ctx, span := s.om.Tracer("resumebuilder.api").Start(r.Context(), "api.models")
	defer span.End()

	result, err := s.Assistant.ListModels(ctx, sess)
	if err != nil {
		span.RecordError(err)
		writeAppError(w, err)
		return
	}
	span.SetAttributes(attribute.Int("models.count", len(result.Models)))
	s.writeResult(w, r, result)
}

// writeResult renders an AI result as JSON unless ?format= asks otherwise
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, result any) {
	format := r.URL.Query().Get("format")
	if format == "" || format == "json" {
		writeJSON(w, http.StatusOK, result)
		return
	}
	if err := validate.Var(format, "oneof="+previewFormats); err != nil {
		writeErrorResponse(w, "Unsupported format", fmt.Sprintf("format must be one of: %s", previewFormats), http.StatusBadRequest)
		return
	}
	s.writeFormatted(w, result, format)
}

func (s *Server) writeFormatted(w http.ResponseWriter, data any, format string) {
	out, err := s.Formatters.Format(data, format)
	if err != nil {
		s.Logger.LogError(err, "Failed to format response", "format", format)
		writeErrorResponse(w, "Formatting failed", err.Error(), http.StatusInternalServerError)
		return
	}

	switch format {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, out); err != nil {
		s.Logger.LogError(err, "Failed to write response")
	}
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*form.Session, bool) {
	sess, err := s.Sessions.Get(r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return nil, false
	}
	return sess, true
}

func sessionResponse(sess *form.Session) SessionResponse {
	resp := SessionResponse{
		ID:     sess.ID,
		Fields: sess.Fields(),
		Busy:   sess.Busy(),
	}
	if snap, ok := sess.LastPreview(); ok {
		resp.Preview = &snap
	}
	if score, ok := sess.LastScore(); ok {
		resp.Score = &score
	}
	return resp
}

// parseFieldMap resolves field names; any unknown name fails the whole map
func parseFieldMap(raw map[string]string) (map[types.Field]string, error) {
	partial := make(map[types.Field]string, len(raw))
	for key, value := range raw {
		field, err := types.ParseField(key)
		if err != nil {
			return nil, errors.NewValidationError(errors.ErrCodeUnknownField, err.Error(), nil).
				WithContext("field", key)
		}
		partial[field] = value
	}
	return partial, nil
}
