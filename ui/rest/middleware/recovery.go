package middleware

import (
	"fmt"
	"runtime/debug"

	pkgError "github.com/AzielCF/az-salesiq/pkg/error"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Recovery converts a panic inside a handler into an error, so it is
// rendered by the app ErrorHandler like any returned error.
func Recovery() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			logrus.WithFields(logrus.Fields{
				"path":       c.Path(),
				"request_id": c.Locals("requestid"),
			}).Errorf("[REST] panic recovered: %v\n%s", r, debug.Stack())

			switch v := r.(type) {
			case pkgError.GenericError:
				err = v
			case error:
				err = pkgError.InternalServerError(v.Error())
			default:
				err = pkgError.InternalServerError(fmt.Sprintf("%v", v))
			}
		}()

		return c.Next()
	}
}
