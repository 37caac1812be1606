package domain

import (
	"fmt"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

func NotFound(entity, id string) *errors.Error {
	return errors.New(subject(entity, id)+" not found", errors.CategoryNotFound).
		WithCode(errors.CodeNotFound).
		WithTextCode("NOT_FOUND")
}

func Conflict(message string) *errors.Error {
	return errors.New(message, errors.CategoryConflict).
		WithCode(errors.CodeConflict).
		WithTextCode("CONFLICT")
}

func Validation(message string, fields ...errors.FieldError) *errors.Error {
	return errors.NewValidation(message, fields...).
		WithCode(errors.CodeBadRequest).
		WithTextCode("VALIDATION_ERROR")
}

// InvalidInput converts an ozzo validation failure into a Validation error.
func InvalidInput(err error) *errors.Error {
	if err == nil {
		return nil
	}
	return errors.FromOzzoValidation(err, "invalid request").
		WithCode(errors.CodeBadRequest).
		WithTextCode("VALIDATION_ERROR")
}

func Unauthorized(message string) *errors.Error {
	return errors.New(message, errors.CategoryAuth).
		WithCode(errors.CodeUnauthorized).
		WithTextCode("UNAUTHORIZED")
}

func Forbidden(message string) *errors.Error {
	return errors.New(message, errors.CategoryAuthz).
		WithCode(errors.CodeForbidden).
		WithTextCode("FORBIDDEN")
}

func Internal(err error, message string) *errors.Error {
	e := errors.Wrap(err, errors.CategoryInternal, message)
	if e == nil {
		e = errors.New(message, errors.CategoryInternal)
	}
	e.Category = errors.CategoryInternal
	return e.WithCode(errors.CodeInternal).WithTextCode("INTERNAL_ERROR")
}

// FromRepository maps a datastore failure onto the domain taxonomy.
// A missing row becomes NotFound for the given entity, a unique violation
// becomes Conflict, a row still referenced elsewhere becomes Conflict and
// anything else is Internal.
func FromRepository(err error, entity, id string) error {
	switch {
	case err == nil:
		return nil
	case repository.IsRecordNotFound(err):
		return NotFound(entity, id)
	case repository.IsDuplicatedKey(err):
		return Conflict(subject(entity, id) + " already exists")
	case repository.IsConstraintViolation(err):
		return Conflict(subject(entity, id) + " is still referenced or violates a constraint")
	}

	if e := AsError(err); e != nil && isDomainCategory(e.Category) {
		return err
	}
	return Internal(err, fmt.Sprintf("%s operation failed", entity))
}

// FromDB maps an error returned by a raw bun query on db. Driver errors are
// first classified with go-repository-bun, errors that already carry a
// category are mapped as they are.
func FromDB(db *bun.DB, err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if AsError(err) == nil && db != nil {
		err = repository.MapDatabaseError(err, repository.DetectDriver(db))
	}
	return FromRepository(err, entity, id)
}

// AsError extracts the *errors.Error carried by err, including the base
// error of a go-errors RetryableError. It returns nil for foreign errors.
func AsError(err error) *errors.Error {
	if err == nil {
		return nil
	}

	var retryable *errors.RetryableError
	if errors.As(err, &retryable) && retryable.BaseError != nil {
		return retryable.BaseError
	}

	var e *errors.Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Normalize returns err as an *errors.Error with an HTTP status code,
// wrapping unknown errors as Internal.
func Normalize(err error) *errors.Error {
	if err == nil {
		return nil
	}

	e := AsError(err)
	if e == nil {
		return Internal(err, "an unexpected error occurred")
	}
	if e.Code != 0 {
		return e
	}

	e = e.Clone()
	switch e.Category {
	case errors.CategoryNotFound, repository.CategoryDatabaseNotFound:
		e.Code = errors.CodeNotFound
	case errors.CategoryConflict, repository.CategoryDatabaseDuplicate:
		e.Code = errors.CodeConflict
	case errors.CategoryValidation, errors.CategoryBadInput:
		e.Code = errors.CodeBadRequest
	case errors.CategoryAuth:
		e.Code = errors.CodeUnauthorized
	case errors.CategoryAuthz:
		e.Code = errors.CodeForbidden
	default:
		e.Code = errors.CodeInternal
	}
	return e
}

func subject(entity, id string) string {
	if id == "" {
		return entity
	}
	return entity + " " + id
}

func isDomainCategory(c errors.Category) bool {
	switch c {
	case errors.CategoryNotFound, errors.CategoryConflict, errors.CategoryValidation,
		errors.CategoryBadInput, errors.CategoryAuth, errors.CategoryAuthz:
		return true
	}
	return false
}
