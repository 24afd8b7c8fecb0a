package services

import (
	"errors"
	"fmt"

	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/models"
	"gorm.io/gorm"
)

// Error categories. Specific errors below wrap one of these so handlers can
// map them to a status without knowing every sentinel.
var (
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("forbidden")
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("conflict")
	// ErrUnavailable marks features whose backing service is not configured.
	ErrUnavailable = errors.New("service unavailable")
)

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

func forbidden(msg string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, msg)
}

// lookupErr turns a missing row into sentinel and wraps anything else.
func lookupErr(err error, sentinel error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return fmt.Errorf("failed to find %s: %w", what, err)
}

// authorize checks action on e. Outsiders get notFoundErr so that the
// existence of records in other workspaces does not leak.
func authorize(eval *authz.Evaluator, actor *authz.Actor, action authz.Action, e models.Entity, notFoundErr error) error {
	if eval.Can(actor, action, e) {
		return nil
	}
	if ws := e.ScopeWorkspaceID(); ws != nil && !actor.IsMember(*ws) {
		return notFoundErr
	}
	return forbidden(fmt.Sprintf("cannot %s this %s", action, e.EntityRef().Kind))
}

// authorizeCreate is authorize for records that do not exist yet.
func authorizeCreate(eval *authz.Evaluator, actor *authz.Actor, kind models.EntityKind, workspaceID *uint64) error {
	if eval.CanCreate(actor, kind, workspaceID) {
		return nil
	}
	if workspaceID != nil && !actor.IsMember(*workspaceID) {
		return ErrWorkspaceNotFound
	}
	return forbidden(fmt.Sprintf("cannot create %s", kind))
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
