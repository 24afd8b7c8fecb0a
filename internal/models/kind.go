package models

import (
	"errors"
	"fmt"
	"sort"
)

// EntityKind discriminates the concrete record type behind a polymorphic link.
// The string value is what gets stored in *_type columns.
type EntityKind string

const (
	KindUser            EntityKind = "user"
	KindWorkspace       EntityKind = "workspace"
	KindTeam            EntityKind = "team"
	KindProject         EntityKind = "project"
	KindTask            EntityKind = "task"
	KindTag             EntityKind = "tag"
	KindPipeline        EntityKind = "pipeline"
	KindPipelineStatus  EntityKind = "pipeline_status"
	KindGoal            EntityKind = "goal"
	KindWiki            EntityKind = "wiki"
	KindComment         EntityKind = "comment"
	KindAttachment      EntityKind = "attachment"
	KindReaction        EntityKind = "reaction"
	KindMention         EntityKind = "mention"
	KindConversation    EntityKind = "conversation"
	KindMessage         EntityKind = "message"
	KindInvoice         EntityKind = "invoice"
	KindSetting         EntityKind = "setting"
	KindWebhook         EntityKind = "webhook"
	KindWebhookDelivery EntityKind = "webhook_delivery"
	KindActivityLog     EntityKind = "activity_log"
	KindAuditLog        EntityKind = "audit_log"
	KindRecurringTask   EntityKind = "recurring_task"
	KindUserPreference  EntityKind = "user_preference"
)

// ErrUnknownKind is returned when a string does not name a registered kind.
var ErrUnknownKind = errors.New("unknown entity kind")

var registry = map[EntityKind]func() Entity{
	KindUser:            func() Entity { return &User{} },
	KindWorkspace:       func() Entity { return &Workspace{} },
	KindTeam:            func() Entity { return &Team{} },
	KindProject:         func() Entity { return &Project{} },
	KindTask:            func() Entity { return &Task{} },
	KindTag:             func() Entity { return &Tag{} },
	KindPipeline:        func() Entity { return &Pipeline{} },
	KindPipelineStatus:  func() Entity { return &PipelineStatus{} },
	KindGoal:            func() Entity { return &Goal{} },
	KindWiki:            func() Entity { return &Wiki{} },
	KindComment:         func() Entity { return &Comment{} },
	KindAttachment:      func() Entity { return &Attachment{} },
	KindReaction:        func() Entity { return &Reaction{} },
	KindMention:         func() Entity { return &Mention{} },
	KindConversation:    func() Entity { return &Conversation{} },
	KindMessage:         func() Entity { return &Message{} },
	KindInvoice:         func() Entity { return &Invoice{} },
	KindSetting:         func() Entity { return &Setting{} },
	KindWebhook:         func() Entity { return &Webhook{} },
	KindWebhookDelivery: func() Entity { return &WebhookDelivery{} },
	KindActivityLog:     func() Entity { return &ActivityLog{} },
	KindAuditLog:        func() Entity { return &AuditLog{} },
	KindRecurringTask:   func() Entity { return &RecurringTask{} },
	KindUserPreference:  func() Entity { return &UserPreference{} },
}

// Valid reports whether k is a registered kind.
func (k EntityKind) Valid() bool {
	_, ok := registry[k]
	return ok
}

// ParseKind validates an external kind string.
func ParseKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// NewEntity returns an empty, addressable record of the given kind, ready to
// be used as a gorm destination.
func NewEntity(kind EntityKind) (Entity, error) {
	ctor, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return ctor(), nil
}

// Kinds lists every registered kind in lexical order.
func Kinds() []EntityKind {
	kinds := make([]EntityKind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Ref is a typed pointer to a row: the kind selects the table, ID the row.
type Ref struct {
	Kind EntityKind `json:"type"`
	ID   uint64     `json:"id"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// IsZero reports whether the ref points nowhere.
func (r Ref) IsZero() bool {
	return r.Kind == "" && r.ID == 0
}

// Entity is implemented by every stored record.
type Entity interface {
	EntityRef() Ref
	// ScopeWorkspaceID returns the tenant the record belongs to, or nil for
	// global records such as users and system settings.
	ScopeWorkspaceID() *uint64
}

// Hierarchical records reference a parent of their own kind.
type Hierarchical interface {
	Entity
	ParentKey() *uint64
	Label() string
}

// Morphable records hang off another record through a (type, id) pair.
type Morphable interface {
	Entity
	MorphRef() Ref
}

func scope(id uint64) *uint64 {
	return &id
}

func copyID(id *uint64) *uint64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
