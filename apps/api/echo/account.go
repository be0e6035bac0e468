package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/session"
	"github.com/trezcool/uninotes/core/user"
)

const avatarField = "avatar"

var errAvatarRequired = core.NewFieldError(avatarField, "this field is required")

type (
	accountApi struct {
		userSvc    *user.Service
		sessionSvc *session.Service
	}

	avatarResponse struct {
		AvatarURL string `json:"avatar_url"`
	}
)

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth authenticator, deps *Deps) {
	api := accountApi{userSvc: deps.UserSvc, sessionSvc: deps.SessionSvc}

	ag := g.Group("/account", jwt, auth.requireUser)
	ag.GET("", api.retrieve)
	ag.PUT("/avatar", api.updateAvatar)
	ag.PUT("/password", api.changePassword)
}

func (api *accountApi) retrieve(ctx echo.Context) error {
	cu, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	p, err := api.userSvc.GetProfile(ctx.Request().Context(), cu.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *accountApi) updateAvatar(ctx echo.Context) error {
	cu, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	file, closer, err := bindFile(ctx, avatarField)
	if err != nil {
		return err
	}
	if file == nil {
		return errAvatarRequired
	}
	defer closeQuietly(closer)

	url, err := api.userSvc.UpdateAvatar(ctx.Request().Context(), cu, *file)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, avatarResponse{AvatarURL: url})
}

func (api *accountApi) changePassword(ctx echo.Context) error {
	cu, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	data := new(user.ChangePassword)
	if err = ctx.Bind(data); err != nil {
		return err
	}
	if err = api.sessionSvc.ChangePassword(ctx.Request().Context(), cu, *data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
