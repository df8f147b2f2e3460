package msgbroker

// MessageBroker carries opaque payloads between publishers and pattern
// subscribers. The relay uses it as the transport for its membership
// events feed.
type MessageBroker interface {
	// Publish sends msg to the given channel
	Publish(msg []byte, channel string) error
	// Subscribe registers cb for every message whose channel matches pattern
	Subscribe(pattern string, cb MessageHandler) error
	// Unsubscribe removes the given pattern subscriptions
	Unsubscribe(patterns ...string) error
	// Close closes subscriptions
	Close() error
}

// MessageHandler is a callback function that processes messages delivered to subscribers.
type MessageHandler func(msg *Message)

// Message is the representation of transmitted data
type Message struct {
	Channel string
	Data    []byte
}
