package telegram

import (
	"fmt"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"

	"github.com/myrsple/telegram-scraper/internal/config"
)

// NewSessionClient creates a protocol client from the session string in the
// configuration. The session stays in memory; nothing is written to disk.
// Use cmd/tg-auth to generate a session string.
func NewSessionClient(cfg *config.Config) (*gotgproto.Client, error) {
	if cfg.TGApiID == 0 || cfg.TGApiHash == "" {
		return nil, fmt.Errorf("TG_API_ID and TG_API_HASH are required: %w", ErrAuth)
	}
	if cfg.TGSessionStr == "" {
		return nil, fmt.Errorf("TG_SESSION_STRING is required, run tg-auth to create one: %w", ErrAuth)
	}

	client, err := gotgproto.NewClient(
		cfg.TGApiID,
		cfg.TGApiHash,
		gotgproto.ClientTypePhone(""), // empty = use session
		&gotgproto.ClientOpts{
			Session:          sessionMaker.StringSession(cfg.TGSessionStr),
			DisableCopyright: true,
			InMemory:         true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w: %v", ErrAuth, err)
	}
	return client, nil
}
