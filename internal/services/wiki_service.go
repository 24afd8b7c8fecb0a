package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/utils"
)

var (
	ErrWikiNotFound       = notFound("wiki page")
	ErrParentWikiNotFound = notFound("parent wiki page")
	ErrWikiCycle          = invalid("a page cannot be moved below itself or its subpages")
	ErrWikiScopeMismatch  = invalid("parent page belongs to another workspace")
	ErrSlugTaken          = conflict("slug is already used in this workspace")
)

const wikiSlugFallback = "page"

// WikiSlugBase is the slug a page would get before de-duplication.
func WikiSlugBase(w *models.Wiki) string {
	if s := utils.Slugify(w.Slug); s != "" {
		return s
	}
	if s := utils.Slugify(w.Title); s != "" {
		return s
	}
	return wikiSlugFallback
}

// PrepareWikiForInsert normalizes a new page before it is stored: the title
// is trimmed and the slug is derived from the requested slug or the title and
// made unique against taken.
func PrepareWikiForInsert(w *models.Wiki, taken []string) {
	w.Title = strings.TrimSpace(w.Title)
	w.Slug = utils.UniqueSlug(WikiSlugBase(w), wikiSlugFallback, taken)
}

// WikiService manages wiki page trees.
type WikiService struct {
	wikiRepo repository.WikiRepository
	resolver *graph.Resolver
	activity *ActivityService
	eval     *authz.Evaluator
}

func NewWikiService(wikiRepo repository.WikiRepository, resolver *graph.Resolver, activity *ActivityService, eval *authz.Evaluator) *WikiService {
	return &WikiService{wikiRepo: wikiRepo, resolver: resolver, activity: activity, eval: eval}
}

// CreateWikiInput represents input for creating a wiki page
type CreateWikiInput struct {
	WorkspaceID uint64
	ProjectID   *uint64
	ParentID    *uint64
	Title       string
	Slug        string
	Content     string
	IsPublished bool
	Position    int
}

// UpdateWikiInput represents input for updating a wiki page
type UpdateWikiInput struct {
	Title       *string
	Slug        *string
	Content     *string
	IsPublished *bool
	Position    *int
}

// CreateWiki creates a page with a unique slug
func (s *WikiService) CreateWiki(ctx context.Context, actor *authz.Actor, input CreateWikiInput) (*models.Wiki, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}
	if err := authorizeCreate(s.eval, actor, models.KindWiki, &input.WorkspaceID); err != nil {
		return nil, err
	}

	wiki := &models.Wiki{
		WorkspaceID: input.WorkspaceID,
		ProjectID:   input.ProjectID,
		ParentID:    input.ParentID,
		AuthorID:    actor.UserID,
		Title:       input.Title,
		Slug:        input.Slug,
		Content:     input.Content,
		IsPublished: input.IsPublished,
		Position:    input.Position,
	}
	if input.ParentID != nil {
		if err := s.ensureParent(ctx, wiki, *input.ParentID); err != nil {
			return nil, err
		}
	}

	taken, err := s.wikiRepo.TakenSlugs(ctx, input.WorkspaceID, WikiSlugBase(wiki))
	if err != nil {
		return nil, fmt.Errorf("failed to check slugs: %w", err)
	}
	PrepareWikiForInsert(wiki, taken)

	if err := s.wikiRepo.Create(ctx, wiki); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to create wiki page: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: wiki, Action: "created", New: wiki})
	return wiki, nil
}

// GetWikiBySlug finds a page by its workspace slug
func (s *WikiService) GetWikiBySlug(ctx context.Context, actor *authz.Actor, workspaceID uint64, slug string) (*models.Wiki, error) {
	wiki, err := s.wikiRepo.FindOne(ctx, map[string]interface{}{"workspace_id": workspaceID, "slug": slug})
	if err != nil {
		return nil, lookupErr(err, ErrWikiNotFound, "wiki page")
	}
	if err := authorize(s.eval, actor, authz.ActionView, wiki, ErrWikiNotFound); err != nil {
		return nil, err
	}
	return wiki, nil
}

// ListWikis lists the pages directly below parentID, or the root pages when
// parentID is nil.
func (s *WikiService) ListWikis(ctx context.Context, actor *authz.Actor, workspaceID uint64, parentID *uint64) ([]models.Wiki, error) {
	if !actor.Has(&workspaceID, authz.PermViewContent) {
		return nil, ErrWorkspaceNotFound
	}
	where := map[string]interface{}{"workspace_id": workspaceID, "parent_id": nil}
	if parentID != nil {
		where["parent_id"] = *parentID
	}
	wikis, _, err := s.wikiRepo.List(ctx, repository.Query{
		Where: where,
		Order: "position ASC, title ASC",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list wiki pages: %w", err)
	}
	return wikis, nil
}

// UpdateWiki applies a partial update. A new slug must be free.
func (s *WikiService) UpdateWiki(ctx context.Context, actor *authz.Actor, wikiID uint64, input UpdateWikiInput) (*models.Wiki, error) {
	wiki, err := s.findWiki(ctx, actor, wikiID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	old := *wiki

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleEmpty
		}
		wiki.Title = title
	}
	if input.Slug != nil {
		slug := utils.Slugify(*input.Slug)
		if slug == "" {
			return nil, invalid("slug cannot be empty")
		}
		wiki.Slug = slug
	}
	if input.Content != nil {
		wiki.Content = *input.Content
	}
	if input.IsPublished != nil {
		wiki.IsPublished = *input.IsPublished
	}
	if input.Position != nil {
		wiki.Position = *input.Position
	}

	if err := s.wikiRepo.Update(ctx, wiki); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to update wiki page: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: wiki, Action: "updated", Old: &old, New: wiki})
	return wiki, nil
}

// MoveWiki re-parents a page. A nil parentID makes it a root page.
func (s *WikiService) MoveWiki(ctx context.Context, actor *authz.Actor, wikiID uint64, parentID *uint64) (*models.Wiki, error) {
	wiki, err := s.findWiki(ctx, actor, wikiID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	oldParent := wiki.ParentID

	if parentID != nil {
		if err := s.ensureParent(ctx, wiki, *parentID); err != nil {
			return nil, err
		}
	}
	wiki.ParentID = parentID

	if err := s.wikiRepo.Update(ctx, wiki); err != nil {
		return nil, fmt.Errorf("failed to move wiki page: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: wiki, Action: "moved", Old: map[string]any{"parent_id": oldParent}, New: map[string]any{"parent_id": parentID}})
	return wiki, nil
}

// DeleteWiki deletes a page and every page below it
func (s *WikiService) DeleteWiki(ctx context.Context, actor *authz.Actor, wikiID uint64) error {
	wiki, err := s.findWiki(ctx, actor, wikiID, authz.ActionDelete)
	if err != nil {
		return err
	}

	descendants, err := s.resolver.Descendants(ctx, models.KindWiki, wikiID)
	if err != nil {
		return fmt.Errorf("failed to collect subpages: %w", err)
	}
	ids := append([]uint64{wikiID}, descendants...)

	if _, err := s.wikiRepo.DeleteWhere(ctx, map[string]interface{}{"id": ids}); err != nil {
		return fmt.Errorf("failed to delete wiki pages: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: wiki, Action: "deleted", Old: map[string]any{"deleted_ids": ids}})
	return nil
}

func (s *WikiService) findWiki(ctx context.Context, actor *authz.Actor, wikiID uint64, action authz.Action) (*models.Wiki, error) {
	wiki, err := s.wikiRepo.FindByID(ctx, wikiID)
	if err != nil {
		return nil, lookupErr(err, ErrWikiNotFound, "wiki page")
	}
	if err := authorize(s.eval, actor, action, wiki, ErrWikiNotFound); err != nil {
		return nil, err
	}
	return wiki, nil
}

func (s *WikiService) ensureParent(ctx context.Context, wiki *models.Wiki, parentID uint64) error {
	err := s.resolver.EnsureParent(ctx, wiki, parentID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, graph.ErrNotFound):
		return ErrParentWikiNotFound
	case errors.Is(err, graph.ErrScopeMismatch):
		return ErrWikiScopeMismatch
	case errors.Is(err, graph.ErrCycle):
		return ErrWikiCycle
	}
	return fmt.Errorf("failed to verify parent page: %w", err)
}
