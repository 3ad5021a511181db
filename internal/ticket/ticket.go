// Package ticket mints ticket identifiers and encodes/decodes the scannable
// credential. A credential holds only the ticket ID; everything else is
// looked up server-side at scan time.
package ticket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
)

// DefaultQRSize is the PNG edge length in pixels.
const DefaultQRSize = 320

type payload struct {
	TicketID string `json:"ticketId"`
}

// New mints a ticket for a confirmed registration.
func New(reg *model.Registration, now time.Time) model.Ticket {
	id := uuid.NewString()
	return model.Ticket{
		ID:             id,
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		Credential:     Credential(id),
		IssuedAt:       now.UTC(),
	}
}

// Credential returns the structured payload encoded into the QR code.
func Credential(ticketID string) string {
	b, _ := json.Marshal(payload{TicketID: ticketID})
	return string(b)
}

// Parse extracts the ticket ID from a scanned payload. Structured payloads
// must carry a ticketId (or ticket_id) field; anything else is taken as the
// raw identifier.
func Parse(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", model.ErrTicketNotFound
	}
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return raw, nil
	}
	for _, key := range []string{"ticketId", "ticket_id"} {
		if v, ok := fields[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	return "", model.ErrTicketNotFound
}

// QRCode renders the credential as a PNG.
func QRCode(credential string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(credential, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
