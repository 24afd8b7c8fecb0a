package dto

import (
	"time"

	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
)

type PipelineDTO struct {
	ID          uint64    `json:"id"`
	WorkspaceID uint64    `json:"workspace_id"`
	ProjectID   *uint64   `json:"project_id"`
	Name        string    `json:"name"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`

	Statuses Optional[[]PipelineStatusDTO] `json:"statuses,omitzero"`
}

type PipelineStatusDTO struct {
	ID         uint64 `json:"id"`
	PipelineID uint64 `json:"pipeline_id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Position   int    `json:"position"`
	IsDefault  bool   `json:"is_default"`

	Pipeline Optional[*PipelineDTO] `json:"pipeline,omitzero"`
}

func ToPipelineDTO(p *models.Pipeline, loaded graph.Loaded) PipelineDTO {
	return PipelineDTO{
		ID:          p.ID,
		WorkspaceID: p.WorkspaceID,
		ProjectID:   p.ProjectID,
		Name:        p.Name,
		IsDefault:   p.IsDefault,
		CreatedAt:   p.CreatedAt,
		Statuses: whenLoaded(loaded, "statuses", func() []PipelineStatusDTO {
			return mapSlice(p.Statuses, func(s *models.PipelineStatus) PipelineStatusDTO {
				return ToPipelineStatusDTO(s, nil)
			})
		}),
	}
}

func ToPipelineStatusDTO(s *models.PipelineStatus, loaded graph.Loaded) PipelineStatusDTO {
	return PipelineStatusDTO{
		ID:         s.ID,
		PipelineID: s.PipelineID,
		Name:       s.Name,
		Color:      s.Color,
		Position:   s.Position,
		IsDefault:  s.IsDefault,
		Pipeline: whenLoaded(loaded, "pipeline", func() *PipelineDTO {
			if s.Pipeline == nil {
				return nil
			}
			d := ToPipelineDTO(s.Pipeline, nil)
			return &d
		}),
	}
}
