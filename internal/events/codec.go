package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType marks a discriminator this service has no variant for.
// Callers log and drop such messages; newer producers are not an error.
var ErrUnknownType = errors.New("unknown event type")

// ValidationError reports a structural defect in an inbound event. It is
// non-retryable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Reason)
}

// Decode deserializes an event by dispatching on its discriminator. Unknown
// extra JSON fields are tolerated; a missing or unknown discriminator and
// missing required envelope fields are rejected.
func Decode(data []byte) (Event, error) {
	var probe struct {
		EventType Type `json:"eventType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &ValidationError{Field: "payload", Reason: "malformed JSON"}
	}

	switch probe.EventType {
	case TypeComment:
		var ev CommentEvent
		return decodeInto(data, &ev)
	case TypeSolution:
		var ev SolutionEvent
		return decodeInto(data, &ev)
	case TypeLog:
		var ev LogEvent
		return decodeInto(data, &ev)
	case "":
		return nil, &ValidationError{Field: "eventType", Reason: "required"}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, probe.EventType)
	}
}

func decodeInto(data []byte, ev Event) (Event, error) {
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, &ValidationError{Field: "payload", Reason: "malformed JSON"}
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}
