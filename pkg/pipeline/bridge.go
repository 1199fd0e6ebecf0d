package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/odvcencio/focusboard/pkg/bus"
	"github.com/odvcencio/focusboard/pkg/telemetry"
)

// BusBridge forwards mutation events from the message bus into the
// telemetry hub, so the event feed shows every write regardless of
// which process published it. With a NATS backend this is how the
// dashboard sees mutations made by a second focusboard instance.
type BusBridge struct {
	sub bus.Subscription
}

// NewBusBridge subscribes to every subject under prefix and republishes
// each message on the hub as a bus.message event.
func NewBusBridge(ctx context.Context, mb bus.MessageBus, prefix string, hub *telemetry.Hub) (*BusBridge, error) {
	subject := bus.Join(prefix, ">")
	sub, err := mb.Subscribe(ctx, subject, func(msg *bus.Message) {
		data := map[string]any{"subject": msg.Subject}
		var payload map[string]any
		if err := json.Unmarshal(msg.Data, &payload); err == nil {
			data["payload"] = payload
		}
		hub.Publish(telemetry.Event{
			Type: telemetry.EventBusMessage,
			Data: data,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return &BusBridge{sub: sub}, nil
}

// Stop cancels the subscription. The hub is left open.
func (b *BusBridge) Stop() {
	if b == nil || b.sub == nil {
		return
	}
	_ = b.sub.Unsubscribe()
}
