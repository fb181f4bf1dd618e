package middleware

import (
	"errors"
	"net/http"
	"strings"

	pkgError "github.com/AzielCF/az-salesiq/pkg/error"
	"github.com/AzielCF/az-salesiq/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ErrorHandler renders errors returned by handlers with the standard
// response envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var genericErr pkgError.GenericError
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &genericErr):
	case errors.As(err, &fiberErr) && fiberErr.Code == fiber.StatusNotFound:
		genericErr = pkgError.NotFoundError(fiberErr.Message)
	case errors.As(err, &fiberErr):
		return c.Status(fiberErr.Code).JSON(utils.ResponseData{
			Status:  fiberErr.Code,
			Code:    strings.ToUpper(strings.ReplaceAll(http.StatusText(fiberErr.Code), " ", "_")),
			Message: fiberErr.Message,
		})
	default:
		genericErr = pkgError.InternalServerError(err.Error())
	}

	if genericErr.StatusCode() >= fiber.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"path":       c.Path(),
			"request_id": c.Locals("requestid"),
		}).WithError(err).Error("[REST] request failed")
	}

	return c.Status(genericErr.StatusCode()).JSON(utils.ResponseData{
		Status:  genericErr.StatusCode(),
		Code:    genericErr.ErrCode(),
		Message: genericErr.Error(),
	})
}
