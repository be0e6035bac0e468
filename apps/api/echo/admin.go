package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/audit"
	"github.com/trezcool/uninotes/core/moderation"
	"github.com/trezcool/uninotes/core/user"
)

// defaultAuditLimit is the number of audit entries returned without `limit`.
const defaultAuditLimit = 50

type (
	adminApi struct {
		deps moderation.Deps
	}

	roleRequest struct {
		Role string `json:"role"`
	}

	dashboardResponse struct {
		Stats moderation.Stats `json:"stats"`
		Users []user.Profile   `json:"users"`
	}
)

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth authenticator, deps *Deps) {
	api := adminApi{deps: moderation.Deps{
		Users:   deps.UserSvc,
		Notes:   deps.NoteSvc,
		Audit:   deps.Audit,
		MailSvc: deps.MailSvc,
		Logger:  deps.Logger,
	}}

	ag := g.Group("/admin", jwt, auth.requireUser, moderatorMiddleware)
	ag.GET("", api.dashboard)
	ag.GET("/users", api.users)
	ag.PUT("/users/:id/role", api.changeRole)
	ag.GET("/posts", api.posts)
	ag.DELETE("/posts/:id", api.deletePost)
	ag.GET("/audit", api.auditLog)
}

// newDashboard returns the moderation dashboard of the context user.
func (api *adminApi) newDashboard(ctx echo.Context, load bool) (*moderation.Dashboard, error) {
	cu, err := getContextUser(ctx)
	if err != nil {
		return nil, err
	}
	d, err := moderation.NewDashboard(cu, api.deps)
	if err != nil {
		return nil, err
	}
	if load {
		if err = d.Load(ctx.Request().Context()); err != nil {
			return nil, errors.Wrap(err, "loading dashboard")
		}
	}
	return d, nil
}

func (api *adminApi) dashboard(ctx echo.Context) error {
	d, err := api.newDashboard(ctx, true)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dashboardResponse{Stats: d.Stats(), Users: d.Users()})
}

func (api *adminApi) users(ctx echo.Context) error {
	d, err := api.newDashboard(ctx, true)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d.Users())
}

func (api *adminApi) changeRole(ctx echo.Context) error {
	data := new(roleRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	role := user.Role(core.CleanString(data.Role, true /* lower */))

	d, err := api.newDashboard(ctx, false)
	if err != nil {
		return err
	}
	change, err := d.ChangeRole(ctx.Request().Context(), ctx.Param("id"), role)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, change)
}

func (api *adminApi) posts(ctx echo.Context) error {
	d, err := api.newDashboard(ctx, true)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d.Posts())
}

func (api *adminApi) deletePost(ctx echo.Context) error {
	d, err := api.newDashboard(ctx, true)
	if err != nil {
		return err
	}
	if _, err = d.DeletePost(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) auditLog(ctx echo.Context) error {
	limit, err := bindLimit(ctx, defaultAuditLimit)
	if err != nil {
		return err
	}
	d, err := api.newDashboard(ctx, false)
	if err != nil {
		return err
	}
	entries, err := d.AuditLog(ctx.Request().Context(), limit)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}
