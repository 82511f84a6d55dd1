package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/knowledge-backend/internal/domain"
	"github.com/yungbote/knowledge-backend/internal/http/response"
	"github.com/yungbote/knowledge-backend/internal/modules/knowledge"
	"github.com/yungbote/knowledge-backend/internal/platform/apierr"
)

type UserService interface {
	RegisterUser(ctx context.Context, in knowledge.RegisterUserInput) (*types.User, error)
}

type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, error)
}

type UserHandler struct {
	users  UserService
	tokens TokenIssuer
}

func NewUserHandler(users UserService, tokens TokenIssuer) *UserHandler {
	return &UserHandler{users: users, tokens: tokens}
}

// POST /api/register
// body: { "handle": "...", "display_name": "..." }
func (uh *UserHandler) Register(c *gin.Context) {
	var req knowledge.RegisterUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.New(http.StatusBadRequest, "invalid_request", err))
		return
	}
	u, err := uh.users.RegisterUser(c.Request.Context(), req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	token, err := uh.tokens.Issue(u.ID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"user": u, "access_token": token})
}
