package notify

import "context"

// MultiChannel fans rendered content out to several channels. Send returns
// the first error but still attempts every channel.
type MultiChannel struct {
	channels []Channel
}

// NewMultiChannel constructs a MultiChannel.
func NewMultiChannel(channels ...Channel) *MultiChannel {
	return &MultiChannel{channels: channels}
}

// Send forwards the content to all channels.
func (m *MultiChannel) Send(ctx context.Context, content string) error {
	if m == nil {
		return nil
	}
	var firstErr error
	for _, channel := range m.channels {
		if channel == nil {
			continue
		}
		if err := channel.Send(ctx, content); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
