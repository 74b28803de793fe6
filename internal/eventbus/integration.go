package eventbus

import (
	"fmt"

	"firestige.xyz/pktsnap/internal/core"
)

// TopicPacketSent carries *core.PacketSent payloads.
const TopicPacketSent = "packet.sent"

// PublishPacket publishes ev on TopicPacketSent keyed by its source, so
// packets of one source keep their order.
func PublishPacket(bus EventBus, ev *core.PacketSent) error {
	return bus.Publish(&Event{
		Topic:   TopicPacketSent,
		Key:     ev.Source,
		Payload: ev,
	})
}

// SubscribePackets registers handler for TopicPacketSent.
func SubscribePackets(bus EventBus, handler func(*core.PacketSent) error) error {
	return bus.Subscribe(TopicPacketSent, func(event *Event) error {
		ev, ok := event.Payload.(*core.PacketSent)
		if !ok {
			return fmt.Errorf("%w: payload %T on %s", core.ErrUnexpectedType, event.Payload, event.Topic)
		}
		return handler(ev)
	})
}
