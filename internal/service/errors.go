// Package service implements the HTTP API handlers. Each service owns
// one domain area and registers its routes on a fiber router.
package service

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/evenup/evenup/internal/auth"
	"github.com/evenup/evenup/internal/ledger"
	"github.com/evenup/evenup/internal/storage"
)

// Flow errors raised by the handlers themselves.
var (
	ErrAlreadyVerified = errors.New("user already verified, please login")
	ErrNotRegistered   = errors.New("register first before verifying")
	ErrOTPMismatch     = errors.New("OTP not valid")
	ErrOTPExpired      = errors.New("OTP expired")
	ErrEmailDelivery   = errors.New("email could not be sent, please try later")
)

// fail maps a domain error to its HTTP status and writes the standard
// {"message": ...} error body. Unrecognized errors become 500 with a
// generic message; the real error only goes to the log.
func fail(c *fiber.Ctx, err error) error {
	var status int
	message := err.Error()

	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, storage.ErrDuplicate),
		errors.Is(err, storage.ErrAlreadyMember),
		errors.Is(err, ledger.ErrInsufficientDebt),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrNoParticipants),
		errors.Is(err, ledger.ErrPayerNotParticipant),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrEmailExists),
		errors.Is(err, ErrNotRegistered),
		errors.Is(err, ErrEmailDelivery):
		status = fiber.StatusBadRequest
	case errors.Is(err, ErrOTPMismatch), errors.Is(err, ErrOTPExpired):
		status = fiber.StatusNotAcceptable
	case errors.Is(err, ErrAlreadyVerified):
		status = fiber.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInactiveAccount),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrRevokedToken),
		errors.Is(err, auth.ErrWrongTokenUse),
		errors.Is(err, auth.ErrMissingToken):
		status = fiber.StatusUnauthorized
	default:
		slog.Error("unhandled error", "error", err)
		status = fiber.StatusInternalServerError
		message = "Server error"
	}

	return c.Status(status).JSON(fiber.Map{"message": message})
}

// badRequest writes a 400 with the given message for malformed input.
func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": message})
}
