package graph

import (
	"sort"

	"github.com/yukikurage/workspace-api/internal/models"
	"gorm.io/gorm/clause"
)

// RelationKind says how a relation is materialized.
type RelationKind int

const (
	// Direct is a belongs-to lookup through a foreign key.
	Direct RelationKind = iota
	// Collection is a has-many list.
	Collection
	// Pivot is a list of join-table rows with the far side attached, so the
	// pivot columns travel with each related record.
	Pivot
	// Morph is the polymorphic owner named by a (type, id) pair.
	Morph
	// Ancestry is the parent chain up to the root.
	Ancestry
)

// Relation describes one includable relation of a kind.
type Relation struct {
	Name     string
	Kind     RelationKind
	preloads []string
	order    interface{}
}

func direct(name string, preloads ...string) Relation {
	return Relation{Name: name, Kind: Direct, preloads: preloads}
}

func collection(name string, order interface{}, preloads ...string) Relation {
	return Relation{Name: name, Kind: Collection, preloads: preloads, order: order}
}

func pivot(name string, order interface{}, preloads ...string) Relation {
	return Relation{Name: name, Kind: Pivot, preloads: preloads, order: order}
}

var (
	subject   = Relation{Name: "subject", Kind: Morph}
	ancestors = Relation{Name: "ancestors", Kind: Ancestry}

	byCreated  = "created_at ASC"
	byPosition = "position ASC, id ASC"
	byJoined   = "joined_at ASC"
	byOrder    = clause.OrderByColumn{Column: clause.Column{Name: "order"}}
)

var relationTable = map[models.EntityKind][]Relation{
	models.KindUser: {
		pivot("memberships", byJoined, "Memberships", "Memberships.Workspace"),
	},
	models.KindWorkspace: {
		direct("owner", "Owner"),
		pivot("members", byJoined, "Members", "Members.User"),
		collection("teams", byCreated, "Teams"),
		collection("projects", byCreated, "Projects"),
	},
	models.KindTeam: {
		direct("workspace", "Workspace"),
		pivot("members", byJoined, "Members", "Members.User"),
		collection("projects", byCreated, "Projects"),
	},
	models.KindProject: {
		direct("owner", "Owner"),
		direct("team", "Team"),
		direct("workspace", "Workspace"),
		collection("tasks", byCreated, "Tasks"),
		collection("pipelines", byCreated, "Pipelines", "Pipelines.Statuses"),
	},
	models.KindTask: {
		direct("creator", "Creator"),
		direct("assignee", "Assignee"),
		direct("workspace", "Workspace"),
		direct("project", "Project"),
		direct("parent", "Parent"),
		collection("children", byCreated, "Children"),
		pivot("tags", byCreated, "TaskTags", "TaskTags.Tag"),
		pivot("pipelines", byOrder, "Pipelines", "Pipelines.Pipeline", "Pipelines.Status"),
		pivot("dependencies", byCreated, "Dependencies", "Dependencies.DependsOn"),
		pivot("dependents", byCreated, "Dependents", "Dependents.Task"),
		collection("comments", byCreated, "Comments", "Comments.Author"),
		collection("attachments", byCreated, "Attachments"),
		ancestors,
	},
	models.KindTag: {},
	models.KindPipeline: {
		collection("statuses", byPosition, "Statuses"),
	},
	models.KindPipelineStatus: {
		direct("pipeline", "Pipeline"),
	},
	models.KindGoal: {
		direct("owner", "Owner"),
		direct("team", "Team"),
		collection("comments", byCreated, "Comments", "Comments.Author"),
	},
	models.KindWiki: {
		direct("author", "Author"),
		direct("parent", "Parent"),
		collection("children", byPosition, "Children"),
		collection("comments", byCreated, "Comments", "Comments.Author"),
		collection("attachments", byCreated, "Attachments"),
		ancestors,
	},
	models.KindComment: {
		direct("author", "Author"),
		direct("parent", "Parent"),
		collection("replies", byCreated, "Replies", "Replies.Author"),
		collection("reactions", byCreated, "Reactions"),
		collection("mentions", byCreated, "Mentions"),
		subject,
		ancestors,
	},
	models.KindAttachment: {
		direct("uploader", "Uploader"),
		subject,
	},
	models.KindReaction: {
		direct("user", "User"),
		subject,
	},
	models.KindMention: {
		direct("user", "User"),
		direct("mentioned_by", "MentionedBy"),
		subject,
	},
	models.KindConversation: {
		direct("creator", "Creator"),
		pivot("participants", byJoined, "Participants", "Participants.User"),
		collection("messages", byCreated, "Messages", "Messages.Sender"),
	},
	models.KindMessage: {
		direct("sender", "Sender"),
		direct("conversation", "Conversation"),
		collection("reactions", byCreated, "Reactions"),
		collection("mentions", byCreated, "Mentions"),
	},
	models.KindInvoice: {},
	models.KindSetting: {},
	models.KindWebhook: {
		collection("deliveries", "created_at DESC", "Deliveries"),
	},
	models.KindWebhookDelivery: {
		direct("webhook", "Webhook"),
	},
	models.KindActivityLog: {
		direct("user", "User"),
		subject,
	},
	models.KindAuditLog: {
		direct("user", "User"),
		subject,
	},
	models.KindRecurringTask: {
		direct("creator", "Creator"),
		direct("assignee", "Assignee"),
		direct("project", "Project"),
	},
	models.KindUserPreference: {},
}

// guardPreloads are always loaded because authorization needs them. They are
// not reported as loaded relations.
var guardPreloads = map[models.EntityKind][]string{
	models.KindUser:         {"Memberships"},
	models.KindConversation: {"Participants"},
	models.KindMessage:      {"Conversation", "Conversation.Participants"},
}

// GuardPreloads returns the associations authorization needs for kind, for
// callers that load records without the resolver.
func GuardPreloads(kind models.EntityKind) []string {
	return guardPreloads[kind]
}

// Lookup finds a relation by its external name.
func Lookup(kind models.EntityKind, name string) (Relation, bool) {
	for _, rel := range relationTable[kind] {
		if rel.Name == name {
			return rel, true
		}
	}
	return Relation{}, false
}

// Relations lists the includable relation names of kind.
func Relations(kind models.EntityKind) []string {
	rels := relationTable[kind]
	names := make([]string, 0, len(rels))
	for _, rel := range rels {
		names = append(names, rel.Name)
	}
	sort.Strings(names)
	return names
}
