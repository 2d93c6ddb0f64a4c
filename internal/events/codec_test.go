package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDispatchesByDiscriminator(t *testing.T) {
	t.Parallel()

	t.Run("comment event", func(t *testing.T) {
		t.Parallel()
		payload := []byte(`{
			"eventType": "COMMENT",
			"tenant": "acme",
			"sourceId": "c-1",
			"relatedEntityId": "t-9",
			"senderEmail": "a@x.com",
			"recipientEmail": "b@x.com",
			"content": "looks good",
			"authorName": "A"
		}`)

		ev, err := Decode(payload)
		require.NoError(t, err)

		comment, ok := ev.(*CommentEvent)
		require.True(t, ok)
		assert.Equal(t, TypeComment, comment.Kind())
		assert.Equal(t, "acme", comment.Tenant)
		assert.Equal(t, "c-1", comment.SourceID)
		assert.Equal(t, "t-9", comment.RelatedEntityID)
		assert.Equal(t, "looks good", comment.Content)
		assert.Equal(t, "A", comment.AuthorName)
	})

	t.Run("solution event", func(t *testing.T) {
		t.Parallel()
		payload := []byte(`{
			"eventType": "SOLUTION",
			"tenant": "acme",
			"sourceId": "999",
			"relatedEntityId": "888",
			"recipientEmail": "b@x.com",
			"content": "Fix applied",
			"authorName": "A",
			"status": "DRAFT"
		}`)

		ev, err := Decode(payload)
		require.NoError(t, err)

		solution, ok := ev.(*SolutionEvent)
		require.True(t, ok)
		assert.Equal(t, "DRAFT", solution.Status)
		assert.Equal(t, "888", solution.RelatedEntityID)
	})

	t.Run("log event", func(t *testing.T) {
		t.Parallel()
		payload := []byte(`{
			"eventType": "LOG",
			"tenant": "acme",
			"sourceId": "log-7",
			"recipientEmail": "system@x.com",
			"severity": "ERROR",
			"summary": "disk full"
		}`)

		ev, err := Decode(payload)
		require.NoError(t, err)

		logEvent, ok := ev.(*LogEvent)
		require.True(t, ok)
		assert.Equal(t, "ERROR", logEvent.Severity)
		assert.Equal(t, "disk full", logEvent.Summary)
	})
}

func TestDecodeToleratesUnknownExtraFields(t *testing.T) {
	t.Parallel()
	payload := []byte(`{
		"eventType": "COMMENT",
		"tenant": "acme",
		"sourceId": "c-1",
		"recipientEmail": "b@x.com",
		"content": "hi",
		"authorName": "A",
		"futureField": {"nested": true},
		"anotherOne": 42
	}`)

	ev, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, TypeComment, ev.Kind())
}

func TestDecodeRejectsStructuralDefects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{
			name:    "missing recipientEmail",
			payload: `{"eventType":"COMMENT","tenant":"acme","sourceId":"c-1","content":"x","authorName":"A"}`,
			field:   "recipientEmail",
		},
		{
			name:    "missing sourceId",
			payload: `{"eventType":"SOLUTION","tenant":"acme","recipientEmail":"b@x.com","content":"x"}`,
			field:   "sourceId",
		},
		{
			name:    "missing eventType",
			payload: `{"tenant":"acme","sourceId":"c-1","recipientEmail":"b@x.com"}`,
			field:   "eventType",
		},
		{
			name:    "log event missing tenant",
			payload: `{"eventType":"LOG","sourceId":"log-1","recipientEmail":"b@x.com"}`,
			field:   "tenant",
		},
		{
			name:    "malformed JSON",
			payload: `{"eventType":`,
			field:   "payload",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev, err := Decode([]byte(tt.payload))
			assert.Nil(t, ev)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestDecodeUnknownVariant(t *testing.T) {
	t.Parallel()
	payload := []byte(`{"eventType":"ESCALATION","sourceId":"e-1","recipientEmail":"b@x.com"}`)

	ev, err := Decode(payload)
	assert.Nil(t, ev)
	require.ErrorIs(t, err, ErrUnknownType)

	var vErr *ValidationError
	assert.False(t, errors.As(err, &vErr), "unknown variant must not be a validation error")
}

func TestConstructorsRoundTrip(t *testing.T) {
	t.Parallel()

	ev := NewSolutionEvent("acme", "999", "888", "a@x.com", "b@x.com", "Fix applied", "A", "DRAFT")
	require.NoError(t, ev.Validate())
	assert.False(t, ev.OccurredAt.IsZero())

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	solution, ok := decoded.(*SolutionEvent)
	require.True(t, ok)
	assert.True(t, ev.OccurredAt.Equal(solution.OccurredAt))
	assert.Equal(t, ev.Tenant, solution.Tenant)
	assert.Equal(t, ev.SourceID, solution.SourceID)
	assert.Equal(t, ev.RelatedEntityID, solution.RelatedEntityID)
	assert.Equal(t, ev.Content, solution.Content)
	assert.Equal(t, ev.Status, solution.Status)
}
