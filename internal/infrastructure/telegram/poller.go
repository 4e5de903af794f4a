package telegram

import (
	"context"
	"log/slog"
	"time"
)

// TextHandler routes decoded updates. Implemented by the conversation
// router.
type TextHandler interface {
	HandleText(ctx context.Context, chatID int64, text string) error
	HandlePhoto(ctx context.Context, chatID int64, image []byte) error
}

// Poller long-polls getUpdates and hands each message to the router.
// Updates are processed in order; the offset only advances past updates
// that have been handed off.
type Poller struct {
	client  *Client
	handler TextHandler
	logger  *slog.Logger
	timeout time.Duration
}

// NewPoller wires the poller.
func NewPoller(client *Client, handler TextHandler, logger *slog.Logger) *Poller {
	return &Poller{
		client:  client,
		handler: handler,
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	var offset int64

	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := p.client.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("poll updates", "error", err)
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, upd := range updates {
			offset = upd.UpdateID + 1
			p.handle(ctx, upd)
		}
	}
}

func (p *Poller) handle(ctx context.Context, upd Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	chatID := msg.Chat.ID

	if len(msg.Photo) > 0 {
		// The last size is the largest rendition.
		fileID := msg.Photo[len(msg.Photo)-1].FileID
		image, err := p.client.DownloadFile(ctx, fileID)
		if err != nil {
			p.logger.Warn("download photo", "chat", chatID, "error", err)
			return
		}
		if err := p.handler.HandlePhoto(ctx, chatID, image); err != nil {
			p.logger.Warn("handle photo", "chat", chatID, "error", err)
		}
		return
	}

	if msg.Text == "" {
		return
	}
	if err := p.handler.HandleText(ctx, chatID, msg.Text); err != nil {
		p.logger.Warn("handle message", "chat", chatID, "error", err)
	}
}
