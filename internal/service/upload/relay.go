package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/chating-app/chating/client/internal/analysis/content"
	"github.com/chating-app/chating/client/internal/model/chat"
	"github.com/chating-app/chating/client/internal/service/api"
)

// ErrMissingURL is returned when an upload succeeds but yields no URL.
var ErrMissingURL = errors.New("upload response has no url")

// Uploader pushes a file somewhere durable and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, body io.Reader) (string, error)
}

// Sender is the outbound half of a live session channel.
type Sender interface {
	Send(frame chat.OutboundFrame) error
}

// Relay uploads a file and announces the resulting URL on the channel.
type Relay struct {
	uploader Uploader
}

// NewRelay wraps an uploader.
func NewRelay(uploader Uploader) *Relay {
	return &Relay{uploader: uploader}
}

// Send uploads body under name and, only once a URL is in hand, sends
// {sender, url, kind} through sink. Nothing is sent when the upload fails.
func (r *Relay) Send(ctx context.Context, sink Sender, sender, name string, body io.Reader) (chat.OutboundFrame, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return chat.OutboundFrame{}, api.Required("file name")
	case body == nil:
		return chat.OutboundFrame{}, api.Required("file")
	case sink == nil:
		return chat.OutboundFrame{}, api.Required("channel")
	}

	url, err := r.uploader.Upload(ctx, filepath.Base(name), body)
	if err != nil {
		log.Warn().Err(err).Str("file", name).Msg("[upload] failed")
		return chat.OutboundFrame{}, fmt.Errorf("upload %s: %w", name, err)
	}

	frame := chat.OutboundFrame{
		Sender:  sender,
		Content: url,
		Type:    content.ForFile(name),
	}
	if err := sink.Send(frame); err != nil {
		return chat.OutboundFrame{}, fmt.Errorf("announce upload %s: %w", name, err)
	}

	log.Debug().Str("file", name).Str("kind", string(frame.Type)).Msg("[upload] sent")
	return frame, nil
}
