package dto

import (
	"encoding/json"
	"time"

	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// UserDetailDTO is the full view of a user, with memberships when loaded
type UserDetailDTO struct {
	UserDTO
	IsAdmin     bool                             `json:"is_admin"`
	CreatedAt   time.Time                        `json:"created_at"`
	Memberships Optional[[]WorkspaceWithRoleDTO] `json:"memberships,omitzero"`
}

// MemberDTO is a user annotated with the pivot columns of a membership
type MemberDTO struct {
	UserDTO
	Role     models.Role `json:"role"`
	JoinedAt time.Time   `json:"joined_at"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
	}
}

func ToUserDetailDTO(user *models.User, loaded graph.Loaded) UserDetailDTO {
	return UserDetailDTO{
		UserDTO:   ToUserDTO(*user),
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
		Memberships: whenLoaded(loaded, "memberships", func() []WorkspaceWithRoleDTO {
			return mapSlice(user.Memberships, ToWorkspaceWithRoleDTO)
		}),
	}
}

func toMemberDTO(userID uint64, user *models.User, role models.Role, joinedAt time.Time) MemberDTO {
	d := MemberDTO{UserDTO: UserDTO{ID: userID}, Role: role, JoinedAt: joinedAt}
	if user != nil {
		d.UserDTO = ToUserDTO(*user)
	}
	return d
}

// ToMemberDTO converts a workspace membership to DTO
func ToMemberDTO(member *models.WorkspaceMember) MemberDTO {
	return toMemberDTO(member.UserID, member.User, member.Role, member.JoinedAt)
}

// ToTeamMemberDTO converts a team membership to DTO
func ToTeamMemberDTO(member *models.TeamMember) MemberDTO {
	return toMemberDTO(member.UserID, member.User, member.Role, member.JoinedAt)
}

// UserPreferenceDTO is a single stored preference
type UserPreferenceDTO struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func ToUserPreferenceDTO(p *models.UserPreference) UserPreferenceDTO {
	return UserPreferenceDTO{
		Key:       p.Key,
		Value:     rawJSON(p.Value),
		UpdatedAt: p.UpdatedAt,
	}
}
