package echoapi

import (
	"github.com/labstack/echo/v4"
)

// moderatorMiddleware must run after authenticator.requireUser.
func moderatorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		cu, err := getContextUser(ctx)
		if err != nil {
			return err
		}
		if !cu.CanModerate() {
			return errHttpForbidden
		}
		return next(ctx)
	}
}
