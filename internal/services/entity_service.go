package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
)

var ErrEntityNotFound = notFound("entity")

// EntityService serves any kind of record through the relation graph.
type EntityService struct {
	resolver *graph.Resolver
	eval     *authz.Evaluator
	now      func() time.Time
}

func NewEntityService(resolver *graph.Resolver, eval *authz.Evaluator) *EntityService {
	return &EntityService{resolver: resolver, eval: eval, now: time.Now}
}

// Get loads kind/id with the requested relations, checks that the actor may
// view it and returns the presented form.
func (s *EntityService) Get(ctx context.Context, actor *authz.Actor, kind string, id uint64, include []string) (any, error) {
	node, err := s.resolve(ctx, actor, kind, id, include, authz.ActionView)
	if err != nil {
		return nil, err
	}
	return dto.Present(node, s.presentContext(actor))
}

// Check reports whether the actor may perform action on kind/id. Records the
// actor cannot see at all are reported as missing.
func (s *EntityService) Check(ctx context.Context, actor *authz.Actor, kind string, id uint64, action string) (bool, error) {
	act, err := authz.ParseAction(action)
	if err != nil {
		return false, invalid(err.Error())
	}
	node, err := s.resolve(ctx, actor, kind, id, nil, authz.ActionView)
	if err != nil {
		return false, err
	}
	return s.eval.Can(actor, act, node.Entity), nil
}

// Relations lists the relation names that may be requested for kind.
func (s *EntityService) Relations(kind string) ([]string, error) {
	k, err := models.ParseKind(kind)
	if err != nil {
		return nil, invalid(err.Error())
	}
	return graph.Relations(k), nil
}

func (s *EntityService) presentContext(actor *authz.Actor) dto.Context {
	return dto.Context{Actor: actor, Eval: s.eval, Now: s.now()}
}

func (s *EntityService) resolve(ctx context.Context, actor *authz.Actor, kind string, id uint64, include []string, action authz.Action) (*graph.Node, error) {
	k, err := models.ParseKind(kind)
	if err != nil {
		return nil, invalid(err.Error())
	}

	node, err := s.resolver.Resolve(ctx, k, id, include)
	switch {
	case errors.Is(err, graph.ErrNotFound):
		return nil, ErrEntityNotFound
	case errors.Is(err, graph.ErrUnknownRelation), errors.Is(err, graph.ErrNotHierarchical):
		return nil, invalid(err.Error())
	case err != nil:
		return nil, fmt.Errorf("failed to resolve %s:%d: %w", k, id, err)
	}

	if err := authorize(s.eval, actor, action, node.Entity, ErrEntityNotFound); err != nil {
		return nil, err
	}
	return node, nil
}
