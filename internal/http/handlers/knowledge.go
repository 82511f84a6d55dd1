package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/knowledge-backend/internal/domain"
	"github.com/yungbote/knowledge-backend/internal/http/response"
	"github.com/yungbote/knowledge-backend/internal/modules/knowledge"
	"github.com/yungbote/knowledge-backend/internal/platform/apierr"
	"github.com/yungbote/knowledge-backend/internal/platform/ctxutil"
)

// KnowledgeService is the slice of knowledge usecases the HTTP surface needs.
type KnowledgeService interface {
	CreateKnowledge(ctx context.Context, actor uuid.UUID, in knowledge.CreateKnowledgeInput) (*types.Knowledge, error)
	ResolveOwned(ctx context.Context, actor, knowledgeID uuid.UUID) (knowledge.ResolveResult, error)
	Publish(ctx context.Context, actor, knowledgeID uuid.UUID) (string, error)
	Connect(ctx context.Context, actor uuid.UUID, in knowledge.ConnectInput) (*types.Connection, bool, error)
	Disconnect(ctx context.Context, actor, connectionID uuid.UUID) error
	DeleteKnowledge(ctx context.Context, actor, knowledgeID uuid.UUID) error
	QueryNode(ctx context.Context, in knowledge.QueryNodeInput) (*knowledge.GraphView, error)
}

type KnowledgeHandler struct {
	knowledge KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: svc}
}

// POST /api/knowledge
func (h *KnowledgeHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req knowledge.CreateKnowledgeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.New(http.StatusBadRequest, "invalid_request", err))
		return
	}
	k, err := h.knowledge.CreateKnowledge(c.Request.Context(), actor, req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"knowledge": k})
}

// POST /api/knowledge/:id/resolve
func (h *KnowledgeHandler) Resolve(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.knowledge.ResolveOwned(c.Request.Context(), actor, id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res})
}

// POST /api/knowledge/:id/publish
func (h *KnowledgeHandler) Publish(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	slug, err := h.knowledge.Publish(c.Request.Context(), actor, id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"slug": slug})
}

// POST /api/knowledge/:id/connections
func (h *KnowledgeHandler) Connect(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req knowledge.ConnectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.New(http.StatusBadRequest, "invalid_request", err))
		return
	}
	req.SourceID = id
	conn, created, err := h.knowledge.Connect(c.Request.Context(), actor, req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if created {
		response.RespondCreated(c, gin.H{"connection": conn})
		return
	}
	response.RespondOK(c, gin.H{"connection": conn})
}

// DELETE /api/connections/:id
func (h *KnowledgeHandler) Disconnect(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.knowledge.Disconnect(c.Request.Context(), actor, id); err != nil {
		response.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/knowledge/:id
func (h *KnowledgeHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.knowledge.DeleteKnowledge(c.Request.Context(), actor, id); err != nil {
		response.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/u/:namespace/:slugOrId?page=&page_size=
// A non-canonical identifier answers 301 with the canonical location and the
// same body, so JSON clients can follow it without a second round trip.
func (h *KnowledgeHandler) Query(c *gin.Context) {
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	pageSize, ok := queryInt(c, "page_size")
	if !ok {
		return
	}
	view, err := h.knowledge.QueryNode(c.Request.Context(), knowledge.QueryNodeInput{
		Namespace: c.Param("namespace"),
		SlugOrID:  c.Param("slugOrId"),
		Actor:     ctxutil.ActorID(c.Request.Context()),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if r := view.Meta.Redirect; r != nil {
		loc := "/api/u/" + r.Namespace + "/" + r.Slug
		if raw := c.Request.URL.RawQuery; raw != "" {
			loc += "?" + raw
		}
		c.Header("Location", loc)
		c.JSON(http.StatusMovedPermanently, view)
		return
	}
	response.RespondOK(c, view)
}

func requireActor(c *gin.Context) (uuid.UUID, bool) {
	actor := ctxutil.ActorID(c.Request.Context())
	if actor == nil {
		response.RespondError(c, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("authentication required")))
		return uuid.Nil, false
	}
	return *actor, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, apierr.New(http.StatusBadRequest, "invalid_"+name, err))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		response.RespondError(c, apierr.New(http.StatusBadRequest, "invalid_"+name, err))
		return 0, false
	}
	return n, true
}
