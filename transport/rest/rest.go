package rest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type ErrorResponse struct {
	ErrorMessage string `json:"error_message"`
}

type FormErrorResponse struct {
	ErrorMessage string            `json:"error_message"`
	Fields       map[string]string `json:"fields"`
}

// FormError rejects a submission without touching any state.
// Fields maps a form field (or "__all__") to its message.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	return "invalid form"
}

func fieldError(field string, message string) *FormError {
	return &FormError{Fields: map[string]string{field: message}}
}

// Config is the fiber configuration every app serving these controllers needs.
func Config() fiber.Config {
	return fiber.Config{
		ErrorHandler: ErrorHandler,
		// covers ctx.Params and friends only, BodyParser output is copied in parseForm
		Immutable: true,
	}
}

func ErrorHandler(ctx *fiber.Ctx, err error) error {
	var fe *fiber.Error
	var formErr *FormError
	switch {
	case errors.As(err, &fe):
		return ctx.
			Status(fe.Code).
			JSON(&ErrorResponse{ErrorMessage: fmt.Sprint(fe.Message)})
	case errors.As(err, &formErr):
		return ctx.
			Status(fiber.StatusBadRequest).
			JSON(&FormErrorResponse{ErrorMessage: formErr.Error(), Fields: formErr.Fields})
	default:
		requestLog(ctx).WithError(err).Errorln("Internal server error.")
		// keep internal server errors private. reply with generic error message.
		return ctx.
			Status(fiber.ErrInternalServerError.Code).
			JSON(&ErrorResponse{ErrorMessage: fmt.Sprint(fiber.ErrInternalServerError.Message)})
	}
}

func NotFoundHandler(c *fiber.Ctx) error {
	return fiber.NewError(fiber.StatusNotFound)
}

func JsonErrorMessageResponse(message string) string {
	bytes, err := json.Marshal(ErrorResponse{ErrorMessage: message})
	if err != nil {
		panic(err)
	}
	return string(bytes)
}
