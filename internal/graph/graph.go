// Package graph loads entities together with the relations a caller asked
// for: foreign-key lookups, pivot rows, polymorphic owners and parent chains.
package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/workspace-api/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("entity not found")
	ErrUnknownRelation = errors.New("unknown relation")
	ErrCycle           = errors.New("parent chain contains a cycle")
	ErrScopeMismatch   = errors.New("parent belongs to a different scope")
	ErrNotHierarchical = errors.New("entity kind has no parent")
	ErrParentNotFound  = fmt.Errorf("parent %w", ErrNotFound)
)

// Loaded records which relations were materialized. A relation that is not
// loaded is different from one that was loaded and came back empty.
type Loaded map[string]struct{}

func NewLoaded(names ...string) Loaded {
	l := make(Loaded, len(names))
	for _, n := range names {
		l[n] = struct{}{}
	}
	return l
}

// Has is safe on a nil Loaded.
func (l Loaded) Has(name string) bool {
	_, ok := l[name]
	return ok
}

// Node is a resolved entity plus what was loaded alongside it.
type Node struct {
	Entity models.Entity
	Loaded Loaded
	// Ancestors is root first and only set when "ancestors" is loaded.
	Ancestors []models.Hierarchical
	// Subject is the polymorphic owner when "subject" is loaded. It stays nil
	// when the owner row no longer exists.
	Subject models.Entity
}

// NewNode wraps an entity that was loaded elsewhere, e.g. by a list query
// that preloaded the named relations.
func NewNode(e models.Entity, loaded ...string) *Node {
	return &Node{Entity: e, Loaded: NewLoaded(loaded...)}
}

// FullPath joins the labels from the root down to the node.
func (n *Node) FullPath(sep string) (string, bool) {
	h, ok := n.Entity.(models.Hierarchical)
	if !ok || !n.Loaded.Has("ancestors") {
		return "", false
	}
	return FullPath(n.Ancestors, h, sep), true
}

type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve loads kind/id and the requested relations.
func (r *Resolver) Resolve(ctx context.Context, kind models.EntityKind, id uint64, relations []string) (*Node, error) {
	entity, err := models.NewEntity(kind)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx)
	node := &Node{Entity: entity, Loaded: make(Loaded, len(relations))}
	var wantAncestors, wantSubject bool

	// gorm keys preloads by path, so a guard must not replace an ordered
	// preload of the same association.
	preloaded := make(map[string]bool)
	for _, name := range relations {
		rel, ok := Lookup(kind, name)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no relation %q", ErrUnknownRelation, kind, name)
		}
		node.Loaded[name] = struct{}{}

		switch rel.Kind {
		case Ancestry:
			wantAncestors = true
		case Morph:
			wantSubject = true
		default:
			query = preload(query, rel)
			for _, path := range rel.preloads {
				preloaded[path] = true
			}
		}
	}
	for _, path := range guardPreloads[kind] {
		if !preloaded[path] {
			query = query.Preload(path)
		}
	}

	if err := query.First(entity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s:%d", ErrNotFound, kind, id)
		}
		return nil, fmt.Errorf("failed to load %s:%d: %w", kind, id, err)
	}

	if wantAncestors {
		h, ok := entity.(models.Hierarchical)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotHierarchical, kind)
		}
		if node.Ancestors, err = r.Ancestors(ctx, h); err != nil {
			return nil, err
		}
	}

	if wantSubject {
		m, ok := entity.(models.Morphable)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no subject", ErrUnknownRelation, kind)
		}
		subject, err := r.ResolveRef(ctx, m.MorphRef())
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, models.ErrUnknownKind):
			// Polymorphic links are not enforced by the store; a dangling
			// owner is reported as loaded and empty.
		case err != nil:
			return nil, err
		default:
			node.Subject = subject
		}
	}

	return node, nil
}

// ResolveRef loads the row a polymorphic reference points at.
func (r *Resolver) ResolveRef(ctx context.Context, ref models.Ref) (models.Entity, error) {
	entity, err := models.NewEntity(ref.Kind)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx)
	for _, path := range guardPreloads[ref.Kind] {
		query = query.Preload(path)
	}

	if err := query.First(entity, ref.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("failed to load %s: %w", ref, err)
	}
	return entity, nil
}

// Ancestors walks parent links from h to the root and returns the chain root
// first. A parent that no longer exists ends the chain. Revisiting a node
// returns ErrCycle.
func (r *Resolver) Ancestors(ctx context.Context, h models.Hierarchical) ([]models.Hierarchical, error) {
	ref := h.EntityRef()
	seen := map[uint64]bool{ref.ID: true}

	var chain []models.Hierarchical
	for next := h.ParentKey(); next != nil; {
		if seen[*next] {
			return nil, fmt.Errorf("%w: %s reaches %d twice", ErrCycle, ref, *next)
		}
		seen[*next] = true

		parent, err := r.ResolveRef(ctx, models.Ref{Kind: ref.Kind, ID: *next})
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}

		p := parent.(models.Hierarchical)
		chain = append(chain, p)
		next = p.ParentKey()
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// EnsureParent checks that parentID may become child's parent: the parent
// exists, is of the same kind, lives in the same workspace (and for
// morphable records hangs off the same subject), and is neither child itself
// nor one of its descendants.
func (r *Resolver) EnsureParent(ctx context.Context, child models.Hierarchical, parentID uint64) error {
	ref := child.EntityRef()
	if ref.ID != 0 && ref.ID == parentID {
		return fmt.Errorf("%w: %s cannot be its own parent", ErrCycle, ref)
	}

	entity, err := r.ResolveRef(ctx, models.Ref{Kind: ref.Kind, ID: parentID})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: %s:%d", ErrParentNotFound, ref.Kind, parentID)
		}
		return err
	}
	parent := entity.(models.Hierarchical)

	if !sameScope(child.ScopeWorkspaceID(), parent.ScopeWorkspaceID()) {
		return ErrScopeMismatch
	}
	if cm, ok := child.(models.Morphable); ok {
		if pm, ok := parent.(models.Morphable); ok && cm.MorphRef() != pm.MorphRef() {
			return ErrScopeMismatch
		}
	}

	if ref.ID == 0 {
		return nil
	}
	chain, err := r.Ancestors(ctx, parent)
	if err != nil {
		return err
	}
	for _, a := range chain {
		if a.EntityRef().ID == ref.ID {
			return fmt.Errorf("%w: %s is an ancestor of %s:%d", ErrCycle, ref, ref.Kind, parentID)
		}
	}
	return nil
}

// Descendants returns the ids of every record below id, breadth first.
func (r *Resolver) Descendants(ctx context.Context, kind models.EntityKind, id uint64) ([]uint64, error) {
	model, err := models.NewEntity(kind)
	if err != nil {
		return nil, err
	}
	if _, ok := model.(models.Hierarchical); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotHierarchical, kind)
	}

	seen := map[uint64]bool{id: true}
	frontier := []uint64{id}
	var out []uint64

	for len(frontier) > 0 {
		var ids []uint64
		if err := r.db.WithContext(ctx).Model(model).
			Where("parent_id IN ?", frontier).
			Order("id").
			Pluck("id", &ids).Error; err != nil {
			return nil, fmt.Errorf("failed to load children of %s: %w", kind, err)
		}

		next := make([]uint64, 0, len(ids))
		for _, childID := range ids {
			if seen[childID] {
				continue
			}
			seen[childID] = true
			out = append(out, childID)
			next = append(next, childID)
		}
		frontier = next
	}

	return out, nil
}

// FullPath joins labels root first, ending with self. A root's path is its
// own label.
func FullPath(ancestors []models.Hierarchical, self models.Hierarchical, sep string) string {
	labels := make([]string, 0, len(ancestors)+1)
	for _, a := range ancestors {
		labels = append(labels, a.Label())
	}
	labels = append(labels, self.Label())
	return strings.Join(labels, sep)
}

// IsRoot reports whether h has no parent.
func IsRoot(h models.Hierarchical) bool {
	return h.ParentKey() == nil
}

func preload(query *gorm.DB, rel Relation) *gorm.DB {
	for i, path := range rel.preloads {
		if i == 0 && rel.order != nil {
			order := rel.order
			query = query.Preload(path, func(db *gorm.DB) *gorm.DB {
				return db.Order(order)
			})
			continue
		}
		query = query.Preload(path)
	}
	return query
}

func sameScope(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
