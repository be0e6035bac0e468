package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/uninotes/core/session"
	"github.com/trezcool/uninotes/core/user"
)

type (
	sessionApi struct {
		svc *session.Service
	}

	sessionResponse struct {
		Tokens      *session.Tokens   `json:"tokens,omitempty"`
		User        *user.CurrentUser `json:"user"`
		View        session.View      `json:"view"`
		CanModerate bool              `json:"can_moderate"`
	}

	recoveryResponse struct {
		ResendIn int `json:"resend_in"` // seconds
	}
)

func newSessionResponse(cu *user.CurrentUser, tokens *session.Tokens) sessionResponse {
	return sessionResponse{
		Tokens:      tokens,
		User:        cu,
		View:        session.InitialView(cu),
		CanModerate: session.CanModerate(cu),
	}
}

func registerSessionAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth authenticator, deps *Deps) {
	api := sessionApi{svc: deps.SessionSvc}

	g.GET("/session", api.current, auth.optionalUser)

	ag := g.Group("/auth")
	// TODO: rate limit `/signin` & `/recovery/verify`
	ag.POST("/signup", api.signUp)
	ag.POST("/signin", api.signIn)
	ag.POST("/recovery", api.sendRecoveryCode)
	ag.POST("/recovery/verify", api.verifyRecoveryCode)

	// authed endpoints; the recovery session may not have a profile yet
	ag.POST("/signout", api.signOut, jwt)
	ag.PUT("/password", api.updatePassword, jwt)
}

func (api *sessionApi) current(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, newSessionResponse(contextUser(ctx), nil))
}

func (api *sessionApi) signUp(ctx echo.Context) error {
	data := new(user.NewAccount)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	p, err := api.svc.SignUp(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *sessionApi) signIn(ctx echo.Context) error {
	data := new(session.Credentials)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	tokens, cu, err := api.svc.SignIn(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(cu, &tokens))
}

func (api *sessionApi) signOut(ctx echo.Context) error {
	if err := api.svc.SignOut(ctx.Request().Context(), contextAccessToken(ctx)); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) sendRecoveryCode(ctx echo.Context) error {
	data := new(session.RecoveryRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := api.svc.SendRecoveryCode(ctx.Request().Context(), *data); err != nil {
		return err
	}
	// unknown emails get the same answer
	wait := api.svc.ResendIn(data.Email)
	return ctx.JSON(http.StatusAccepted, recoveryResponse{ResendIn: int(wait.Round(time.Second).Seconds())})
}

func (api *sessionApi) verifyRecoveryCode(ctx echo.Context) error {
	data := new(session.RecoveryVerification)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	tokens, err := api.svc.VerifyRecoveryCode(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tokens)
}

func (api *sessionApi) updatePassword(ctx echo.Context) error {
	data := new(user.NewPassword)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := api.svc.UpdatePassword(ctx.Request().Context(), contextAccessToken(ctx), *data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
