// Package bus carries topic messages between navgoal and the rest of the robot.
package bus

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// A Message is one payload received on a topic.
type Message struct {
	Topic string
	Data  []byte
}

// A Handler is called for each message on a subscribed topic. Calls for one subscription never
// overlap.
type Handler func(ctx context.Context, msg Message)

// A Subscription can be cancelled.
type Subscription interface {
	Unsubscribe() error
}

// Bus is a publish/subscribe transport addressed by ROS style topic names.
type Bus interface {
	Publish(ctx context.Context, topic string, data []byte) error
	Subscribe(topic string, handler Handler) (Subscription, error)
	Close() error
}

// PublishJSON marshals v and publishes it on topic.
func PublishJSON(ctx context.Context, b Bus, topic string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "cannot encode message for %s", topic)
	}
	return b.Publish(ctx, topic, data)
}

// Subject maps a ROS topic such as "/aruco_detect/markers_front" to a NATS subject
// "aruco_detect.markers_front".
func Subject(topic string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(topic), "/")
	if trimmed == "" {
		return "", errors.Errorf("invalid topic %q", topic)
	}
	if strings.ContainsAny(trimmed, " \t\r\n*>.") {
		return "", errors.Errorf("topic %q contains characters not allowed in a subject", topic)
	}
	return strings.ReplaceAll(trimmed, "/", "."), nil
}
