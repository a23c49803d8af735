// Package delivery sends the rendered digest to its recipients.
package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/scoutwatch/scout/internal/domain"
)

// Message is a rendered digest ready to send.
type Message struct {
	Subject string
	HTML    []byte
	Text    []byte
	Digest  domain.Digest
}

// Receipt proves a delivery attempt. ProviderID is assigned locally so
// retries and log lines can be correlated even when the transport has
// no id of its own.
type Receipt struct {
	ProviderID  string    `json:"provider_id"`
	Transport   string    `json:"transport"`
	Recipients  []string  `json:"recipients"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// Deliverer sends a digest message somewhere.
type Deliverer interface {
	Deliver(ctx context.Context, msg Message) (Receipt, error)
}

func newReceipt(transport string, recipients []string, at time.Time) Receipt {
	return Receipt{
		ProviderID:  uuid.NewString(),
		Transport:   transport,
		Recipients:  recipients,
		DeliveredAt: at,
	}
}
