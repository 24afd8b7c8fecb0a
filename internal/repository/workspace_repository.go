package repository

import (
	"context"

	"github.com/yukikurage/workspace-api/internal/database"
	"github.com/yukikurage/workspace-api/internal/models"
	"gorm.io/gorm"
)

// GormWorkspaceRepository is a GORM implementation of WorkspaceRepository
type GormWorkspaceRepository struct {
	db *gorm.DB
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &GormWorkspaceRepository{db: db}
}

// Create creates a new workspace and its owner membership
func (r *GormWorkspaceRepository) Create(ctx context.Context, ws *models.Workspace, owner *models.WorkspaceMember) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ws).Error; err != nil {
			return translate(err)
		}
		owner.WorkspaceID = ws.ID
		return translate(tx.Create(owner).Error)
	})
}

// FindByID finds a workspace by ID
func (r *GormWorkspaceRepository) FindByID(ctx context.Context, id uint64) (*models.Workspace, error) {
	var ws models.Workspace
	if err := r.db.WithContext(ctx).First(&ws, id).Error; err != nil {
		return nil, err
	}
	return &ws, nil
}

// FindByInviteCode finds a workspace by invite code
func (r *GormWorkspaceRepository) FindByInviteCode(ctx context.Context, code string) (*models.Workspace, error) {
	var ws models.Workspace
	if err := r.db.WithContext(ctx).Where("invite_code = ?", code).First(&ws).Error; err != nil {
		return nil, err
	}
	return &ws, nil
}

// Update updates a workspace
func (r *GormWorkspaceRepository) Update(ctx context.Context, ws *models.Workspace) error {
	return translate(r.db.WithContext(ctx).Save(ws).Error)
}

// Delete deletes a workspace and all related data in a transaction
func (r *GormWorkspaceRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Soft-deletable content first, then the rows that hang off the workspace directly
		scoped := []interface{}{
			&models.Task{},
			&models.Project{},
			&models.Goal{},
			&models.Wiki{},
			&models.Comment{},
			&models.Webhook{},
			&models.RecurringTask{},
			&models.Pipeline{},
			&models.PipelineStatus{},
			&models.Tag{},
		}
		for _, model := range scoped {
			if err := tx.Scopes(database.InWorkspace(id)).Delete(model).Error; err != nil {
				return err
			}
		}

		teamIDs := tx.Model(&models.Team{}).Select("id").Where("workspace_id = ?", id)
		if err := tx.Where("team_id IN (?)", teamIDs).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		if err := tx.Scopes(database.InWorkspace(id)).Delete(&models.Team{}).Error; err != nil {
			return err
		}

		// Delete all members
		if err := tx.Scopes(database.InWorkspace(id)).Delete(&models.WorkspaceMember{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Workspace{}, id).Error
	})
}

// AddMember adds a member to a workspace
func (r *GormWorkspaceRepository) AddMember(ctx context.Context, member *models.WorkspaceMember) error {
	return translate(r.db.WithContext(ctx).Create(member).Error)
}

// UpdateMemberRole changes the role of an existing member
func (r *GormWorkspaceRepository) UpdateMemberRole(ctx context.Context, workspaceID, userID uint64, role models.Role) error {
	result := r.db.WithContext(ctx).Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RemoveMember removes a member from a workspace, including their team memberships there
func (r *GormWorkspaceRepository) RemoveMember(ctx context.Context, workspaceID, userID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		teamIDs := tx.Model(&models.Team{}).Select("id").Where("workspace_id = ?", workspaceID)
		if err := tx.Where("user_id = ? AND team_id IN (?)", userID, teamIDs).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		return tx.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
			Delete(&models.WorkspaceMember{}).Error
	})
}

// FindMember finds a specific workspace member
func (r *GormWorkspaceRepository) FindMember(ctx context.Context, workspaceID, userID uint64) (*models.WorkspaceMember, error) {
	var member models.WorkspaceMember
	if err := r.db.WithContext(ctx).Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// CountByRole counts the members holding role
func (r *GormWorkspaceRepository) CountByRole(ctx context.Context, workspaceID uint64, role models.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND role = ?", workspaceID, role).
		Count(&count).Error
	return count, err
}

// ListMembersByUserID lists all workspaces a user is a member of
func (r *GormWorkspaceRepository) ListMembersByUserID(ctx context.Context, userID uint64) ([]models.WorkspaceMember, error) {
	var memberships []models.WorkspaceMember
	if err := r.db.WithContext(ctx).Preload("Workspace").
		Where("user_id = ?", userID).
		Order("workspace_id").
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListMembers lists all members of a workspace
func (r *GormWorkspaceRepository) ListMembers(ctx context.Context, workspaceID uint64) ([]models.WorkspaceMember, error) {
	var members []models.WorkspaceMember
	if err := r.db.WithContext(ctx).Preload("User").
		Where("workspace_id = ?", workspaceID).
		Order("joined_at").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// CreateTeam creates a team and its first member
func (r *GormWorkspaceRepository) CreateTeam(ctx context.Context, team *models.Team, lead *models.TeamMember) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return translate(err)
		}
		if lead == nil {
			return nil
		}
		lead.TeamID = team.ID
		return translate(tx.Create(lead).Error)
	})
}

// FindTeam finds a team with its members
func (r *GormWorkspaceRepository) FindTeam(ctx context.Context, id uint64) (*models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).Preload("Members.User").First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// ListTeams lists the teams of a workspace
func (r *GormWorkspaceRepository) ListTeams(ctx context.Context, workspaceID uint64) ([]models.Team, error) {
	var teams []models.Team
	if err := r.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).
		Order("name").
		Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

// AddTeamMember adds a member to a team
func (r *GormWorkspaceRepository) AddTeamMember(ctx context.Context, member *models.TeamMember) error {
	return translate(r.db.WithContext(ctx).Create(member).Error)
}

// RemoveTeamMember removes a member from a team
func (r *GormWorkspaceRepository) RemoveTeamMember(ctx context.Context, teamID, userID uint64) error {
	return deleteOne(r.db.WithContext(ctx).Where("team_id = ? AND user_id = ?", teamID, userID), &models.TeamMember{})
}

// ListTeamMembershipsByUserID lists every team a user belongs to
func (r *GormWorkspaceRepository) ListTeamMembershipsByUserID(ctx context.Context, userID uint64) ([]models.TeamMember, error) {
	var memberships []models.TeamMember
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}
