package apperrors

import (
	"fmt"
	"strings"
)

// ConflictError: переход запрошен из недопустимого статуса.
type ConflictError struct {
	Op            string
	CurrentStatus string
	ValidStatuses []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: shipment status is %q, expected one of [%s]",
		e.Op, e.CurrentStatus, strings.Join(e.ValidStatuses, ", "))
}

type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Reason
}

// ValidationError: некорректный запрос от клиента, соединение не закрываем.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type NotFoundError struct {
	Resource string
	ID       uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}
