package models

import (
	"time"

	"github.com/yukikurage/workspace-api/internal/recurrence"
	"gorm.io/datatypes"
)

// RecurringTask is a template that spawns a Task every time it comes due.
type RecurringTask struct {
	ID              uint64                   `gorm:"primarykey" json:"id"`
	WorkspaceID     uint64                   `gorm:"not null;index" json:"workspace_id"`
	ProjectID       *uint64                  `json:"project_id"`
	CreatorID       uint64                   `gorm:"not null" json:"creator_id"`
	AssigneeID      *uint64                  `json:"assignee_id"`
	Title           string                   `gorm:"type:varchar(255);not null" json:"title"`
	Description     string                   `gorm:"type:text" json:"description"`
	Frequency       recurrence.Frequency     `gorm:"type:varchar(20);not null" json:"frequency"`
	Interval        int                      `gorm:"column:repeat_interval;not null;default:1" json:"interval"`
	DaysOfWeek      datatypes.JSONSlice[int] `json:"days_of_week"`
	DayOfMonth      *int                     `json:"day_of_month"`
	StartDate       time.Time                `json:"start_date"`
	EndDate         *time.Time               `json:"end_date"`
	NextDueDate     time.Time                `gorm:"index:idx_recurring_due" json:"next_due_date"`
	LastGeneratedAt *time.Time               `json:"last_generated_at"`
	IsActive        bool                     `gorm:"not null;default:true;index:idx_recurring_due" json:"is_active"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`

	// Relations
	Creator  *User    `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Assignee *User    `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Project  *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

func (r *RecurringTask) EntityRef() Ref { return Ref{Kind: KindRecurringTask, ID: r.ID} }
func (r *RecurringTask) ScopeWorkspaceID() *uint64 { return scope(r.WorkspaceID) }

// Rule extracts the schedule.
func (r *RecurringTask) Rule() recurrence.Rule {
	return recurrence.Rule{
		Frequency:  r.Frequency,
		Interval:   r.Interval,
		DaysOfWeek: []int(r.DaysOfWeek),
		DayOfMonth: r.DayOfMonth,
	}
}

// IsDue reports whether a task should be generated at now.
func (r *RecurringTask) IsDue(now time.Time) bool {
	return recurrence.IsDue(r.IsActive, r.NextDueDate, r.EndDate, now)
}
