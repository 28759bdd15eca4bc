package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/maoni/core/user"
)

// userMiddleware only lets through requests whose (current, not token) user satisfies allowed.
func userMiddleware(svc user.Service, allowed func(usr *user.User) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			if allowed(&usr) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// adminMiddleware requires an admin having any of roles (if provided).
func adminMiddleware(svc user.Service, roles ...string) echo.MiddlewareFunc {
	return userMiddleware(svc, func(usr *user.User) bool {
		if !usr.IsAdmin() {
			return false
		}
		if len(roles) == 0 {
			return true
		}
		for _, role := range roles {
			if usr.HasRole(role) {
				return true
			}
		}
		return false
	})
}

func staffMiddleware(svc user.Service) echo.MiddlewareFunc {
	return userMiddleware(svc, (*user.User).IsStaff)
}

func adminOrHODMiddleware(svc user.Service) echo.MiddlewareFunc {
	return userMiddleware(svc, func(usr *user.User) bool { return usr.IsAdmin() || usr.IsHOD() })
}
