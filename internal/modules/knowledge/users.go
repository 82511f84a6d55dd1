package knowledge

import (
	"context"
	"strings"

	"github.com/yungbote/knowledge-backend/internal/data/aggregates"
	types "github.com/yungbote/knowledge-backend/internal/domain"
	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
	"github.com/yungbote/knowledge-backend/internal/platform/validate"
)

type RegisterUserInput struct {
	Handle      string `json:"handle" validate:"required,min=2,max=40"`
	DisplayName string `json:"display_name" validate:"max=120"`
}

// RegisterUser claims a namespace handle. Handles are URL path segments, so
// they must already be in slug form.
func (u Usecases) RegisterUser(ctx context.Context, in RegisterUserInput) (*types.User, error) {
	const op = "Knowledge.RegisterUser"
	in.Handle = strings.ToLower(strings.TrimSpace(in.Handle))
	if err := validate.Struct(in); err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), nil)
	}
	if Slugify(in.Handle) != in.Handle {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "handle may only contain a-z, 0-9 and single dashes", nil)
	}
	if u.deps.Users == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "users not configured", nil)
	}
	user := &types.User{Handle: in.Handle, DisplayName: strings.TrimSpace(in.DisplayName)}
	if err := u.deps.Users.Create(dbctx.Context{Ctx: ctx}, user); err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return user, nil
}
