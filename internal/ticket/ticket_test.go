package ticket

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
)

func TestNewTicketCarriesOnlyTheID(t *testing.T) {
	reg := &model.Registration{
		ID:          "reg-1",
		EventID:     "ev-1",
		Participant: model.Participant{ID: "p-1", Name: "Asha Rao", Email: "asha@example.com"},
	}
	tk := New(reg, time.Now())

	_, err := uuid.Parse(tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "reg-1", tk.RegistrationID)
	assert.Equal(t, "ev-1", tk.EventID)
	assert.Equal(t, `{"ticketId":"`+tk.ID+`"}`, tk.Credential)
	assert.NotContains(t, tk.Credential, "asha")
}

func TestNewTicketIDsAreUnique(t *testing.T) {
	reg := &model.Registration{ID: "reg-1"}
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		tk := New(reg, time.Now())
		_, dup := seen[tk.ID]
		require.False(t, dup)
		seen[tk.ID] = struct{}{}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"structured", `{"ticketId":"abc"}`, "abc", nil},
		{"snake case", `{"ticket_id":" abc "}`, "abc", nil},
		{"raw", "  abc-123 ", "abc-123", nil},
		{"malformed json is raw", `{not json`, "{not json", nil},
		{"structured without id", `{"event":"x"}`, "", model.ErrTicketNotFound},
		{"empty", "   ", "", model.ErrTicketNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	id := uuid.NewString()
	got, err := Parse(Credential(id))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestQRCodeIsPNG(t *testing.T) {
	png, err := QRCode(Credential("abc"), 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
