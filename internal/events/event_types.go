package events

import "time"

// Type enumerates supported event discriminators.
type Type string

const (
	TypeComment  Type = "COMMENT"
	TypeSolution Type = "SOLUTION"
	TypeLog      Type = "LOG"
)

// Known reports whether the discriminator names a supported variant.
func (t Type) Known() bool {
	switch t {
	case TypeComment, TypeSolution, TypeLog:
		return true
	}
	return false
}

// Envelope carries the fields shared by every event variant. Events are
// immutable transport values; they are never persisted as-is.
type Envelope struct {
	EventType       Type      `json:"eventType"`
	OccurredAt      time.Time `json:"occurredAt"`
	Tenant          string    `json:"tenant"`
	SourceID        string    `json:"sourceId"`
	RelatedEntityID string    `json:"relatedEntityId,omitempty"`
	SenderEmail     string    `json:"senderEmail,omitempty"`
	RecipientEmail  string    `json:"recipientEmail"`
}

// Kind returns the discriminator.
func (e Envelope) Kind() Type { return e.EventType }

// Meta returns the shared envelope fields.
func (e Envelope) Meta() Envelope { return e }

// Validate enforces the structural pre-processing rules: a violation is
// non-retryable and aborts only the offending message.
func (e Envelope) Validate() error {
	if !e.EventType.Known() {
		return &ValidationError{Field: "eventType", Reason: "missing or unknown"}
	}
	if e.SourceID == "" {
		return &ValidationError{Field: "sourceId", Reason: "required"}
	}
	if e.RecipientEmail == "" {
		return &ValidationError{Field: "recipientEmail", Reason: "required"}
	}
	return nil
}

// Event is any variant sharing the common envelope.
type Event interface {
	Kind() Type
	Meta() Envelope
	Validate() error
}

// CommentEvent signals a new comment on a ticket.
type CommentEvent struct {
	Envelope
	Content    string `json:"content"`
	AuthorName string `json:"authorName"`
}

// SolutionEvent signals a new or updated solution on a ticket.
type SolutionEvent struct {
	Envelope
	Content    string `json:"content"`
	AuthorName string `json:"authorName"`
	Status     string `json:"status,omitempty"`
}

// LogEvent signals a new monitored log entry for a tenant. Recipients are
// resolved at consumption time via the directory, so the envelope recipient
// only identifies the event's addressee of record.
type LogEvent struct {
	Envelope
	Severity string `json:"severity,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// Validate additionally requires a tenant, since log fan-out is resolved per
// tenant rather than from the envelope recipient.
func (e LogEvent) Validate() error {
	if err := e.Envelope.Validate(); err != nil {
		return err
	}
	if e.Tenant == "" {
		return &ValidationError{Field: "tenant", Reason: "required"}
	}
	return nil
}

// NewCommentEvent builds a comment event stamped with the current time.
func NewCommentEvent(tenant, commentID, ticketID, sender, recipient, content, author string) *CommentEvent {
	return &CommentEvent{
		Envelope: Envelope{
			EventType:       TypeComment,
			OccurredAt:      time.Now().UTC(),
			Tenant:          tenant,
			SourceID:        commentID,
			RelatedEntityID: ticketID,
			SenderEmail:     sender,
			RecipientEmail:  recipient,
		},
		Content:    content,
		AuthorName: author,
	}
}

// NewSolutionEvent builds a solution event stamped with the current time.
func NewSolutionEvent(tenant, solutionID, ticketID, sender, recipient, content, author, status string) *SolutionEvent {
	return &SolutionEvent{
		Envelope: Envelope{
			EventType:       TypeSolution,
			OccurredAt:      time.Now().UTC(),
			Tenant:          tenant,
			SourceID:        solutionID,
			RelatedEntityID: ticketID,
			SenderEmail:     sender,
			RecipientEmail:  recipient,
		},
		Content:    content,
		AuthorName: author,
		Status:     status,
	}
}

// NewLogEvent builds a log event stamped with the current time.
func NewLogEvent(tenant, logID, sender, recipient, severity, summary string) *LogEvent {
	return &LogEvent{
		Envelope: Envelope{
			EventType:      TypeLog,
			OccurredAt:     time.Now().UTC(),
			Tenant:         tenant,
			SourceID:       logID,
			SenderEmail:    sender,
			RecipientEmail: recipient,
		},
		Severity: severity,
		Summary:  summary,
	}
}
