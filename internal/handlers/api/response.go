package api

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"shopmap/internal/apperr"
)

// jsonSuccess returns a 200 response with data wrapped in the standard envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonCreated is jsonSuccess with 201 Created.
func jsonCreated(c fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// Error writes err in the error envelope:
//
//	{"status":"error","error":"...","code":"VALIDATION_ERROR","details":{...}}
//
// Server-side failures use the code's public message so storage errors are
// not leaked to clients.
func Error(c fiber.Ctx, err error) error {
	ae := toAppError(err)
	meta := apperr.MetadataFor(ae.Code())
	status := ae.HTTPStatus()

	message := ae.Message()
	if status >= fiber.StatusInternalServerError || message == "" {
		message = meta.PublicMessage
	}

	body := fiber.Map{
		"status": "error",
		"error":  message,
		"code":   ae.Code(),
	}
	if meta.DetailsAllowed && ae.Details() != nil {
		body["details"] = ae.Details()
	}
	if meta.Retryable {
		body["retryable"] = true
	}

	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("code", string(ae.Code())).Msg("request failed")
	}

	return c.Status(status).JSON(body)
}

// toAppError maps any error to an apperr.Error. Fiber errors keep their status.
func toAppError(err error) *apperr.Error {
	if ae := apperr.As(err); ae != nil {
		return ae
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		var code apperr.Code
		switch fe.Code {
		case fiber.StatusBadRequest:
			code = apperr.CodeValidation
		case fiber.StatusUnauthorized:
			code = apperr.CodeUnauthorized
		case fiber.StatusForbidden:
			code = apperr.CodeForbidden
		case fiber.StatusNotFound:
			code = apperr.CodeNotFound
		default:
			return apperr.Wrap(apperr.CodeInternal, err, fe.Message).WithHTTPStatus(fe.Code)
		}
		return apperr.Wrap(code, err, fe.Message)
	}

	return apperr.Wrap(apperr.CodeInternal, err, "")
}
