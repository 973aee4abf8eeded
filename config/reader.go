package config

import (
	"bytes"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Read reads and validates the config file at path, expanding ${VAR} references from the
// environment first. Keys missing from the file keep their defaults.
func Read(path string) (*Config, error) {
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read config file")
	}

	cfg, err := FromReader(bytes.NewReader(buf))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", path)
	}
	cfg.ConfigFilePath = path
	return cfg, nil
}

// FromReader reads and validates a config. Unknown keys are rejected so typos do not silently
// fall back to defaults.
func FromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read config")
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "cannot parse config")
		}
	}

	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StartupDiff lists the keys that differ between two configs but are only read at startup.
func StartupDiff(old, updated *Config) []string {
	var changed []string
	for _, f := range []struct {
		key      string
		old, new string
	}{
		{"marker_topic_front_left", old.MarkerTopicFrontLeft, updated.MarkerTopicFrontLeft},
		{"marker_topic_front_right", old.MarkerTopicFrontRight, updated.MarkerTopicFrontRight},
		{"goal_topic", old.GoalTopic, updated.GoalTopic},
		{"tf_topic", old.TFTopic, updated.TFTopic},
		{"nats_url", old.NATSURL, updated.NATSURL},
		{"monitor_address", old.MonitorAddress, updated.MonitorAddress},
		{"history_path", old.HistoryPath, updated.HistoryPath},
	} {
		if f.old != f.new {
			changed = append(changed, f.key)
		}
	}
	if old.PublishRateHz != updated.PublishRateHz {
		changed = append(changed, "publish_rate_hz")
	}
	if old.TransformCacheDuration != updated.TransformCacheDuration {
		changed = append(changed, "transform_cache_duration")
	}
	if len(old.StaticTransforms) != len(updated.StaticTransforms) {
		changed = append(changed, "static_transforms")
	} else {
		for i := range old.StaticTransforms {
			if !staticTransformEqual(old.StaticTransforms[i], updated.StaticTransforms[i]) {
				changed = append(changed, "static_transforms")
				break
			}
		}
	}
	return changed
}

func staticTransformEqual(a, b StaticTransform) bool {
	if a.Parent != b.Parent || a.Child != b.Child || a.Translation != b.Translation {
		return false
	}
	return ptrEqual(a.Orientation.Quaternion, b.Orientation.Quaternion) && ptrEqual(a.Orientation.RPY, b.Orientation.RPY)
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
