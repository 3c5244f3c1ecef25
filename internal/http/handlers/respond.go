package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"auctionhouse/internal/domain"
	applog "auctionhouse/internal/log"
)

const genericMessage = "Something went wrong. Please try again."

// ErrorBody is the envelope of every error response.
type ErrorBody struct {
	Status    int    `json:"status"`
	ErrorCode string `json:"errorCode,omitempty"`
	Message   string `json:"message"`
}

// classify maps a domain error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, domain.ErrBidTooLow):
		return fiber.StatusBadRequest, "BID_TOO_LOW"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return fiber.StatusBadRequest, "INSUFFICIENT_FUNDS"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrFrozen):
		return fiber.StatusForbidden, "FROZEN"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrExpired):
		return fiber.StatusConflict, "EXPIRED"
	case errors.Is(err, domain.ErrBidSuperseded):
		return fiber.StatusConflict, "BID_SUPERSEDED"
	case errors.Is(err, domain.ErrConditionFailed):
		return fiber.StatusConflict, "CONDITION_FAILED"
	case errors.Is(err, domain.ErrInvalidState):
		return fiber.StatusConflict, "INVALID_STATE"
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

// fail writes the error envelope. Internal errors are logged and replaced by a generic message.
func fail(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	msg := err.Error()
	switch {
	case status >= fiber.StatusInternalServerError:
		applog.Error(c, "request.error", err, nil)
		msg = genericMessage
	case status == fiber.StatusUnauthorized || status == fiber.StatusForbidden:
		applog.Security(c, "request.denied", map[string]any{"code": code, "reason": msg})
	}
	return c.Status(status).JSON(ErrorBody{Status: status, ErrorCode: code, Message: msg})
}

func badRequest(c *fiber.Ctx, format string, args ...any) error {
	return fail(c, fmt.Errorf("%w: "+format, append([]any{domain.ErrValidation}, args...)...))
}

var fiberCodes = map[int]string{
	fiber.StatusNotFound:              "NOT_FOUND",
	fiber.StatusMethodNotAllowed:      "METHOD_NOT_ALLOWED",
	fiber.StatusRequestEntityTooLarge: "PAYLOAD_TOO_LARGE",
	fiber.StatusTooManyRequests:       "RATE_LIMITED",
	fiber.StatusBadRequest:            "BAD_REQUEST",
}

// ErrorHandler renders framework errors (routing, body limits, panics) with the same envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		return fail(c, err)
	}
	code, ok := fiberCodes[fe.Code]
	if !ok {
		code = fmt.Sprintf("HTTP_%d", fe.Code)
	}
	msg := fe.Message
	if fe.Code >= fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
		code, msg = "INTERNAL", genericMessage
	}
	return c.Status(fe.Code).JSON(ErrorBody{Status: fe.Code, ErrorCode: code, Message: msg})
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}
