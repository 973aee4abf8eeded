package navgoal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"go.viam.com/navgoal/bus"
	"go.viam.com/navgoal/config"
	"go.viam.com/navgoal/logging"
	"go.viam.com/navgoal/referenceframe"
	"go.viam.com/navgoal/ros"
)

// LoadStaticTransforms adds every configured static transform to buf.
func LoadStaticTransforms(buf *referenceframe.Buffer, cfg *config.Config) error {
	for idx, st := range cfg.StaticTransforms {
		tf := st.Transform()
		if err := buf.SetTransform(tf, true); err != nil {
			return errors.Wrapf(err, "cannot add static transform %d (%s -> %s)", idx, tf.Parent, tf.Child)
		}
	}
	return nil
}

// SubscribeTransforms feeds the transform messages published on topic into buf. Bad transforms are
// logged and skipped; the rest of the message still applies.
func SubscribeTransforms(b bus.Bus, topic string, buf *referenceframe.Buffer, logger logging.Logger) (bus.Subscription, error) {
	sub, err := b.Subscribe(topic, func(ctx context.Context, msg bus.Message) {
		var tfm ros.TFMessage
		if err := json.Unmarshal(msg.Data, &tfm); err != nil {
			logger.Warnw("dropping malformed transform message", "topic", msg.Topic, "error", err)
			return
		}
		for _, ts := range tfm.Transforms {
			tf := ts.FrameTransform()
			if err := buf.SetTransform(tf, false); err != nil {
				logger.Warnw("ignoring transform", "transform", fmt.Sprintf("%s -> %s", tf.Parent, tf.Child), "error", err)
			}
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot subscribe to transforms on %s", topic)
	}
	logger.Infow("listening for transforms", "topic", topic)
	return sub, nil
}
