package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTicketCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateTicketCode()

		require.NoError(t, err)
		assert.Regexp(t, `^TKT-[0-9a-f]{32}$`, code)
		seen[code] = true
	}

	assert.Len(t, seen, 100, "ticket codes must be unique")
}

func TestTicketEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 6, 15, 19, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		status     TicketStatus
		validUntil time.Time
		expected   TicketStatus
	}{
		{name: "active within window", status: TicketActive, validUntil: now.Add(time.Hour), expected: TicketActive},
		{name: "active past window derives expired", status: TicketActive, validUntil: now.Add(-time.Minute), expected: TicketExpired},
		{name: "active at the boundary", status: TicketActive, validUntil: now, expected: TicketActive},
		{name: "used stays used even past window", status: TicketUsed, validUntil: now.Add(-time.Hour), expected: TicketUsed},
		{name: "pending is unaffected by the window", status: TicketPending, validUntil: now.Add(-time.Hour), expected: TicketPending},
		{name: "cancelled is unaffected by the window", status: TicketCancelled, validUntil: now.Add(-time.Hour), expected: TicketCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := Ticket{Status: tt.status}

			assert.Equal(t, tt.expected, ticket.EffectiveStatus(now, tt.validUntil))
			assert.Equal(t, tt.status, ticket.Status, "derivation must not mutate the stored status")
		})
	}
}

func TestTicketValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		ticket := Ticket{Code: "TKT-abc123", Status: TicketActive}
		assert.NoError(t, ticket.Validate())
	})

	t.Run("missing code", func(t *testing.T) {
		ticket := Ticket{Status: TicketActive}
		assert.ErrorContains(t, ticket.Validate(), "code is required")
	})

	t.Run("expired is never a storable status", func(t *testing.T) {
		ticket := Ticket{Code: "TKT-abc123", Status: TicketExpired}
		assert.ErrorContains(t, ticket.Validate(), "invalid ticket status")
	})
}
