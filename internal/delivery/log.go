package delivery

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogDeliverer writes a digest summary to the log instead of sending
// it anywhere. Used for dry runs and when SMTP is disabled.
type LogDeliverer struct {
	log zerolog.Logger
	now func() time.Time
}

// NewLog builds the log adapter.
func NewLog(log zerolog.Logger) *LogDeliverer {
	return &LogDeliverer{
		log: log.With().Str("transport", "log").Logger(),
		now: time.Now,
	}
}

// Deliver logs the digest headline and returns a receipt.
func (d *LogDeliverer) Deliver(_ context.Context, msg Message) (Receipt, error) {
	receipt := newReceipt("log", nil, d.now().UTC())
	d.log.Info().
		Str("provider_id", receipt.ProviderID).
		Str("subject", msg.Subject).
		Int("total_alerts", msg.Digest.TotalAlerts).
		Int("suppressed", msg.Digest.SuppressedCount).
		Int("all_clear", len(msg.Digest.AllClear)).
		Int("issues", len(msg.Digest.Issues)).
		Msg("digest delivery (dry run)")
	return receipt, nil
}
