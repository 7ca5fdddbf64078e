package trail

import "time"

// Типы событий журнала
const (
	TypeSubmitted        = "brief.submitted"
	TypeResubmitted      = "brief.resubmitted"
	TypeApproved         = "brief.approved"
	TypeRejected         = "brief.rejected"
	TypeChangesRequested = "brief.changes_requested"
	TypeEdited           = "brief.edited"
	TypeCancelled        = "brief.cancelled"
	TypeCreated          = "brief.created"
	TypeDeleted          = "brief.deleted"
	TypeProductionPrefix = "production."
)

type Event struct {
	ID         string         `json:"id"`       // UUID события
	BriefID    string         `json:"brief_id"` // О каком брифе
	Type       string         `json:"type"`     // brief.submitted, production.in_progress ...
	ActorID    string         `json:"actor_id"` // Кто делал
	ActorRole  string         `json:"actor_role"`
	FromStatus string         `json:"from_status,omitempty"`
	ToStatus   string         `json:"to_status,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"` // Сводка политики, комментарий и т.п.
	Timestamp  time.Time      `json:"timestamp"`
}
