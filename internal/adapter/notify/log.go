package notify

import (
	"context"

	"mobile-money-ledger/internal/core/domain"

	"github.com/rs/zerolog"
)

// LogNotifier writes notifications to the log. Used when no gateway is
// configured.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, note domain.Notification) error {
	n.log.Info().
		Str("owner_id", note.OwnerID.String()).
		Str("category", note.Category).
		Str("title", note.Title).
		Msg(note.Body)
	return nil
}

// DeliverCode logs the code at debug level only.
func (n *LogNotifier) DeliverCode(_ context.Context, destination, code string) error {
	n.log.Debug().Str("destination", destination).Str("code", code).Msg("step-up code")
	n.log.Info().Str("destination", destination).Msg("step-up code issued")
	return nil
}
