package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Load stages reported by LoadError
const (
	StageSchema   = "schema"
	StageRawLoad  = "raw_load"
	StageReadBack = "read_back"
	StageCompute  = "compute"
	StageDerived  = "derived_load"
	StageAudit    = "audit"
	StageCommit   = "commit"
)

// LoadError reports a failed replace-load. The transaction has been rolled back and the previous
// snapshot is intact.
type LoadError struct {
	Stage string
	Err   error
}

// Error implements the error interface
func (e *LoadError) Error() string {
	return fmt.Sprintf("load failed at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error
func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError wraps err with the stage it failed in. An existing LoadError is returned unchanged.
func NewLoadError(stage string, err error) error {
	if err == nil {
		return nil
	}
	var le *LoadError
	if errors.As(err, &le) {
		return err
	}
	return &LoadError{Stage: stage, Err: err}
}

// DBError represents a database operation error with context
type DBError struct {
	Operation string
	Err       error
}

// Error implements the error interface
func (e *DBError) Error() string {
	return fmt.Sprintf("database error in %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error
func (e *DBError) Unwrap() error {
	return e.Err
}

// WrapDBError wraps a database error with operation context
func WrapDBError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &DBError{
		Operation: operation,
		Err:       err,
	}
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       interface{}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s not found: %v", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// NewNotFoundErrorWithID creates a new NotFoundError with an ID
func NewNotFoundErrorWithID(resource string, id interface{}) error {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// PostgreSQL error codes the warehouse distinguishes
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqSerializationFail   = "40001"
)

// PQCode returns the SQLSTATE of a lib/pq error in the chain, or ""
func PQCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsUniqueViolation reports a duplicate key error from PostgreSQL
func IsUniqueViolation(err error) bool {
	return PQCode(err) == pqUniqueViolation
}

// IsConflict reports errors caused by a concurrent writer; the run can be retried by the caller
func IsConflict(err error) bool {
	switch PQCode(err) {
	case pqSerializationFail, pqForeignKeyViolation:
		return true
	}
	return false
}
