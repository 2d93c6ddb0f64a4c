package domain

import "time"

// SourceType names the kind of entity a notification originated from.
type SourceType string

const (
	SourceTypeLog      SourceType = "LOG"
	SourceTypeComment  SourceType = "COMMENT"
	SourceTypeSolution SourceType = "SOLUTION"
)

// Notification is the persisted record delivered to a recipient. Records are
// created by the event consumer, mutated only to flip Read, and never deleted.
type Notification struct {
	ID             string
	Subject        string
	Message        string
	SourceType     SourceType
	SourceID       string
	ActionType     *string
	Tenant         string
	SenderEmail    string
	RecipientEmail string
	Read           bool
	CreatedAt      time.Time
}
