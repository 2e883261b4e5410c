package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Fehlerklassen der Kernlogik. Konkrete Fehler wickeln sich zu einer dieser Klassen ab.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConsistency = errors.New("consistency violation")
)

// ValidationError meldet ungültige Eingaben, bevor Seiteneffekte entstehen.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError meldet eine referenzierte, aber nicht existierende Entität.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IngestionRunError beschreibt den Abbruch eines Laufs; die Nachricht landet in error_message.
type IngestionRunError struct {
	RunID    uint
	Provider string
	Err      error
}

func (e *IngestionRunError) Error() string {
	return fmt.Sprintf("ingestion run %d (%s) failed: %v", e.RunID, e.Provider, e.Err)
}

func (e *IngestionRunError) Unwrap() error { return e.Err }

// notFound übersetzt gorm.ErrRecordNotFound in einen NotFoundError.
func notFound(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return err
}

// consistency markiert Verletzungen natürlicher Schlüssel.
func consistency(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %v", what, ErrConsistency, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
