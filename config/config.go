// Package config defines the navgoal configuration file, its defaults and its validation.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/navgoal/goal"
	"go.viam.com/navgoal/marker"
	"go.viam.com/navgoal/referenceframe"
)

// Defaults for every optional key.
const (
	DefaultMapFrame                = "map"
	DefaultCameraFrame             = "camera_rgb_frame"
	DefaultMarkerTopic             = "aruco_detect/markers_front"
	DefaultGoalTopic               = "goal_pose"
	DefaultTFTopic                 = "tf"
	DefaultDistanceOffset          = -0.5
	DefaultPublishRateHz           = 1.0
	DefaultMarkerDelayThresholdSec = 1.0
)

// Config is the navgoal configuration file.
//
// Topics, the publish rate, static transforms, listen addresses and paths are read once at
// startup. Frames, offsets, thresholds and desired marker IDs are read on every detection, so
// reloading the file changes them immediately.
type Config struct {
	MapFrame              string `yaml:"map_frame"`
	CameraFrontLeftFrame  string `yaml:"camera_front_left_frame"`
	CameraFrontRightFrame string `yaml:"camera_front_right_frame"`

	// A negative ID matches no marker.
	DesiredMarkerIDLeft  int `yaml:"desired_aruco_marker_id_left"`
	DesiredMarkerIDRight int `yaml:"desired_aruco_marker_id_right"`

	DistanceOffset float64 `yaml:"aruco_distance_offset"`
	LateralOffset  float64 `yaml:"aruco_left_right_offset"`

	MarkerTopicFrontLeft  string `yaml:"marker_topic_front_left"`
	MarkerTopicFrontRight string `yaml:"marker_topic_front_right"`
	GoalTopic             string `yaml:"goal_topic"`
	TFTopic               string `yaml:"tf_topic"`

	PublishRateHz           float64 `yaml:"publish_rate_hz"`
	MarkerDelayThresholdSec float64 `yaml:"marker_delay_threshold_sec"`
	GoalDistanceThreshold   float64 `yaml:"goal_distance_threshold"`

	TransformTimeout       time.Duration `yaml:"transform_timeout"`
	TransformCacheDuration time.Duration `yaml:"transform_cache_duration"`

	StaticTransforms []StaticTransform `yaml:"static_transforms"`

	NATSURL        string `yaml:"nats_url"`
	MonitorAddress string `yaml:"monitor_address"`
	HistoryPath    string `yaml:"history_path"`
	LogLevel       string `yaml:"log_level"`

	// ConfigFilePath is where the config was read from, if anywhere.
	ConfigFilePath string `yaml:"-"`
}

// Default returns a config with every key at its default.
func Default() *Config {
	return &Config{
		MapFrame:                DefaultMapFrame,
		CameraFrontLeftFrame:    DefaultCameraFrame,
		CameraFrontRightFrame:   DefaultCameraFrame,
		DesiredMarkerIDLeft:     int(marker.NoID),
		DesiredMarkerIDRight:    int(marker.NoID),
		DistanceOffset:          DefaultDistanceOffset,
		MarkerTopicFrontLeft:    DefaultMarkerTopic,
		MarkerTopicFrontRight:   DefaultMarkerTopic,
		GoalTopic:               DefaultGoalTopic,
		TFTopic:                 DefaultTFTopic,
		PublishRateHz:           DefaultPublishRateHz,
		MarkerDelayThresholdSec: DefaultMarkerDelayThresholdSec,
		GoalDistanceThreshold:   goal.DefaultDockingThreshold,
		TransformTimeout:        referenceframe.DefaultLookupTimeout,
		TransformCacheDuration:  referenceframe.DefaultCacheDuration,
		LogLevel:                "info",
	}
}

// NewFieldError returns an error describing why the field at path.field is invalid.
func NewFieldError(path, field, reason string) error {
	return errors.Errorf("error validating %q: %s", joinPath(path, field), reason)
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// representable reports whether ns nanoseconds fit a positive time.Duration.
func representable(ns float64) bool {
	return ns >= 1 && ns < math.MaxInt64
}

// Validate ensures all parts of the config are valid, returning the first problem found.
func (c *Config) Validate(path string) error {
	for _, f := range []struct {
		name  string
		value string
	}{
		{"map_frame", c.MapFrame},
		{"camera_front_left_frame", c.CameraFrontLeftFrame},
		{"camera_front_right_frame", c.CameraFrontRightFrame},
		{"marker_topic_front_left", c.MarkerTopicFrontLeft},
		{"marker_topic_front_right", c.MarkerTopicFrontRight},
		{"goal_topic", c.GoalTopic},
	} {
		if referenceframe.CleanFrameName(f.value) == "" {
			return utils.NewConfigValidationFieldRequiredError(path, f.name)
		}
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"aruco_distance_offset", c.DistanceOffset},
		{"aruco_left_right_offset", c.LateralOffset},
		{"goal_distance_threshold", c.GoalDistanceThreshold},
	} {
		if !finite(f.value) {
			return NewFieldError(path, f.name, "must be a finite number")
		}
	}
	if !finite(c.PublishRateHz) || c.PublishRateHz <= 0 {
		return NewFieldError(path, "publish_rate_hz", "must be greater than zero")
	}
	if !representable(float64(time.Second) / c.PublishRateHz) {
		return NewFieldError(path, "publish_rate_hz", "period must be between 1ns and ~292 years")
	}
	if !finite(c.MarkerDelayThresholdSec) || c.MarkerDelayThresholdSec <= 0 {
		return NewFieldError(path, "marker_delay_threshold_sec", "must be greater than zero")
	}
	if !representable(c.MarkerDelayThresholdSec * float64(time.Second)) {
		return NewFieldError(path, "marker_delay_threshold_sec", "must be between 1ns and ~292 years")
	}
	if c.TransformTimeout < 0 {
		return NewFieldError(path, "transform_timeout", "cannot be negative")
	}
	if c.TransformCacheDuration <= 0 {
		return NewFieldError(path, "transform_cache_duration", "must be greater than zero")
	}
	if _, err := c.Level(); err != nil {
		return NewFieldError(path, "log_level", err.Error())
	}
	for idx, st := range c.StaticTransforms {
		if err := st.Validate(fmt.Sprintf("%s.%d", joinPath(path, "static_transforms"), idx)); err != nil {
			return err
		}
	}
	return nil
}

// CameraFrame returns the camera frame of a side.
func (c *Config) CameraFrame(side goal.Side) string {
	if side == goal.Right {
		return c.CameraFrontRightFrame
	}
	return c.CameraFrontLeftFrame
}

// MarkerTopic returns the detection topic of a side.
func (c *Config) MarkerTopic(side goal.Side) string {
	if side == goal.Right {
		return c.MarkerTopicFrontRight
	}
	return c.MarkerTopicFrontLeft
}

// DesiredMarkerID returns the marker a side follows. Any negative configured ID becomes NoID.
func (c *Config) DesiredMarkerID(side goal.Side) marker.ID {
	id := c.DesiredMarkerIDLeft
	if side == goal.Right {
		id = c.DesiredMarkerIDRight
	}
	if id < 0 {
		return marker.NoID
	}
	return marker.ID(id)
}

// Offsets returns the camera frame offsets applied to detections.
func (c *Config) Offsets() goal.Offsets {
	return goal.Offsets{Longitudinal: c.DistanceOffset, Lateral: c.LateralOffset}
}

// DockingEvaluator returns the docking judge for the configured threshold.
func (c *Config) DockingEvaluator() goal.DockingEvaluator {
	return goal.DockingEvaluator{Threshold: c.GoalDistanceThreshold}
}

// PublishPeriod is the time between goal publications.
func (c *Config) PublishPeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.PublishRateHz)
}

// Staleness is the age at which a goal stops being published.
func (c *Config) Staleness() time.Duration {
	return time.Duration(c.MarkerDelayThresholdSec * float64(time.Second))
}
