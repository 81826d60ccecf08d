// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file centralizes shared repository error values and
// driver-specific error classification.
package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates a uniqueness violation, e.g. a second 'sent' row
// for an event id or a reissued invite token colliding.
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation classifies driver errors as uniqueness violations.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
