package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/domain/node"
	apperrors "github.com/jm289765/concept-graph-web/internal/errors"
	"github.com/jm289765/concept-graph-web/internal/graphstore"
	"github.com/jm289765/concept-graph-web/internal/messaging"
	"github.com/jm289765/concept-graph-web/internal/validation"
)

// AddNodeRequest is the query of POST /add.
type AddNodeRequest struct {
	Type    string `validate:"omitempty,oneof=concept explanation comment question"`
	Title   string `validate:"max=500"`
	Content string
	Tags    string `validate:"max=1000"`
	Parent  string
}

// UpdateNodeRequest is the query of POST /update.
type UpdateNodeRequest struct {
	ID   string `validate:"required"`
	Attr string `validate:"required,oneof=title content tags type"`
	Val  string
}

// LinkRequest is the query of POST /link and POST /unlink.
type LinkRequest struct {
	Parent string `validate:"required"`
	Child  string `validate:"required"`
	TwoWay string `validate:"omitempty,boolean"`
}

// SearchRequest is the query of GET /search.
type SearchRequest struct {
	Q string `validate:"max=200"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	id, err := requiredID(r.URL.Query().Get("id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rec, err := s.store.GetNode(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) getNeighbors(w http.ResponseWriter, r *http.Request) {
	id, err := requiredID(r.URL.Query().Get("id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	hood, err := s.store.Neighbors(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, hood)
}

func (s *Server) addNode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := AddNodeRequest{
		Type:    q.Get("type"),
		Title:   q.Get("title"),
		Content: q.Get("content"),
		Tags:    q.Get("tags"),
		Parent:  q.Get("parent"),
	}
	if err := validation.ValidateStruct(req); err != nil {
		s.respondError(w, r, invalidInput(err))
		return
	}
	parent, err := optionalID(req.Parent)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rec, err := s.store.AddNode(r.Context(), graphstore.NewNode{
		Type:    node.Type(req.Type),
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
		Parent:  parent,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.publish(r.Context(), messaging.NodeAdded(rec, parent))
	s.respondJSON(w, http.StatusCreated, node.NewPayload(rec))
}

func (s *Server) updateNode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := UpdateNodeRequest{ID: q.Get("id"), Attr: q.Get("attr"), Val: q.Get("val")}
	if err := validation.ValidateStruct(req); err != nil {
		s.respondError(w, r, invalidInput(err))
		return
	}
	id, err := requiredID(req.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	field := node.Field(req.Attr)

	rec, err := s.store.UpdateNode(r.Context(), id, field, req.Val)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.publish(r.Context(), messaging.NodeUpdated(id, field))
	s.respondJSON(w, http.StatusOK, node.NewPayload(rec))
}

func (s *Server) link(w http.ResponseWriter, r *http.Request) {
	parent, child, twoWay, err := parseLink(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.store.Link(r.Context(), parent, child, twoWay); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.publish(r.Context(), messaging.EdgeLinked(parent, child, twoWay))
	s.respondJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) unlink(w http.ResponseWriter, r *http.Request) {
	parent, child, twoWay, err := parseLink(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.store.Unlink(r.Context(), parent, child, twoWay); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.publish(r.Context(), messaging.EdgeUnlinked(parent, child, twoWay))
	s.respondJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	req := SearchRequest{Q: r.URL.Query().Get("q")}
	if err := validation.ValidateStruct(req); err != nil {
		s.respondError(w, r, invalidInput(err))
		return
	}
	results, err := s.store.Search(r.Context(), req.Q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, results)
}

func (s *Server) listNodeIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.ListIDs(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, ids)
}

// publish emits change events. The mutation already succeeded, so failures
// are logged and not reported to the caller.
func (s *Server) publish(ctx context.Context, events ...messaging.GraphEvent) {
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish graph events",
			zap.Error(err),
			zap.String("requestID", middleware.GetReqID(ctx)),
		)
	}
}

func parseLink(r *http.Request) (parent, child node.ID, twoWay bool, err error) {
	q := r.URL.Query()
	req := LinkRequest{Parent: q.Get("parent"), Child: q.Get("child"), TwoWay: q.Get("two_way")}
	if err = validation.ValidateStruct(req); err != nil {
		return "", "", false, invalidInput(err)
	}
	if parent, err = requiredID(req.Parent); err != nil {
		return "", "", false, err
	}
	if child, err = requiredID(req.Child); err != nil {
		return "", "", false, err
	}
	if req.TwoWay != "" {
		twoWay, _ = strconv.ParseBool(req.TwoWay)
	}
	return parent, child, twoWay, nil
}

func requiredID(raw string) (node.ID, error) {
	id, err := optionalID(raw)
	if err != nil {
		return node.NoID, err
	}
	if id.IsZero() {
		return node.NoID, apperrors.InvalidID(raw).Build()
	}
	return id, nil
}

func optionalID(raw string) (node.ID, error) {
	id, err := node.ParseID(raw)
	if err != nil {
		return node.NoID, apperrors.InvalidID(raw).WithCause(err).Build()
	}
	return id, nil
}

func invalidInput(err error) error {
	return apperrors.Validation(apperrors.CodeInvalidInput, err.Error()).Build()
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	message := err.Error()
	var ue *apperrors.UnifiedError
	if errors.As(err, &ue) {
		message = ue.Message
		if ue.Details != "" {
			message += ": " + ue.Details
		}
	}

	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", status),
		zap.String("path", r.URL.Path),
		zap.String("requestID", middleware.GetReqID(r.Context())),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", fields...)
	} else {
		s.logger.Debug("Request rejected", fields...)
	}

	s.respondJSON(w, status, map[string]interface{}{
		"error":     true,
		"message":   message,
		"code":      status,
		"errorCode": apperrors.Code(err),
	})
}
