package echoapi

import (
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/session"
	"github.com/trezcool/uninotes/core/user"
	authsvc "github.com/trezcool/uninotes/services/auth"
)

const (
	contextTokenKey    = "userToken"
	contextUserKey     = "user"
	contextRawTokenKey = "rawToken"
	tokenQueryParam    = "token"
)

// newJWTConfig returns the JWT auth middleware config. Tokens are signed by the auth collaborator.
func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.Auth.JWTSecret),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(authsvc.Claims),
	}
}

// authenticator joins verified tokens with their profile.
type authenticator struct {
	resolver *session.Resolver
	secret   string
}

func getContextClaims(ctx echo.Context) (authsvc.Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*authsvc.Claims); ok {
			return *claims, nil
		}
	}
	return authsvc.Claims{}, errUnauthorized
}

// contextUser returns the user set by the auth middlewares, nil when anonymous.
func contextUser(ctx echo.Context) *user.CurrentUser {
	cu, _ := ctx.Get(contextUserKey).(*user.CurrentUser)
	return cu
}

func contextAccessToken(ctx echo.Context) string {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		return token.Raw
	}
	raw, _ := ctx.Get(contextRawTokenKey).(string)
	return raw
}

func getContextUser(ctx echo.Context) (*user.CurrentUser, error) {
	if cu := contextUser(ctx); cu != nil {
		return cu, nil
	}
	return nil, errUnauthorized
}

// requireUser must run after the JWT middleware.
// Revoked sessions and identities without profile are rejected.
func (a authenticator) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if _, err := getContextClaims(ctx); err != nil {
			return err
		}
		cu, err := a.resolver.Resolve(ctx.Request().Context(), contextAccessToken(ctx))
		if err != nil {
			return errors.Wrap(err, "resolving user")
		}
		if cu == nil {
			return errUnauthorized
		}
		ctx.Set(contextUserKey, cu)
		return next(ctx)
	}
}

// optionalUser accepts anonymous requests. The token is read from the Authorization header
// or from the `token` query param (browsers cannot set headers on WebSocket requests).
func (a authenticator) optionalUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		raw := bearerToken(ctx)
		if raw == "" {
			return next(ctx)
		}
		if _, err := authsvc.ParseToken(raw, a.secret); err != nil {
			return next(ctx)
		}
		cu, err := a.resolver.Resolve(ctx.Request().Context(), raw)
		if err != nil {
			return errors.Wrap(err, "resolving user")
		}
		if cu != nil {
			ctx.Set(contextUserKey, cu)
			ctx.Set(contextRawTokenKey, raw)
		}
		return next(ctx)
	}
}

func bearerToken(ctx echo.Context) string {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return strings.TrimSpace(ctx.QueryParam(tokenQueryParam))
}
