package ports

import "context"

// AlarmPublisher forwards an encoded alarm state to a broker topic.
type AlarmPublisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}
