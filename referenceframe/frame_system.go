package referenceframe

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	spatial "go.viam.com/navgoal/spatialmath"
)

// DefaultCacheDuration is how much history is kept for each dynamic transform.
const DefaultCacheDuration = 10 * time.Second

var _ TransformProvider = (*Buffer)(nil)

// edge is the link from a child frame to its single parent.
type edge struct {
	parent string
	static bool
	// samples is ordered by stamp, oldest first. A static edge holds exactly one sample.
	samples []Transform
}

// Buffer is a tree of frames connected by time-stamped transforms, allowing lookups between any two
// frames that share an ancestor. It is safe for concurrent use.
type Buffer struct {
	clock         clock.Clock
	cacheDuration time.Duration

	mu      sync.RWMutex
	edges   map[string]*edge
	updated chan struct{}
}

// BufferOption configures a Buffer.
type BufferOption func(*Buffer)

// WithClock sets the clock used to time lookups out.
func WithClock(c clock.Clock) BufferOption {
	return func(b *Buffer) {
		b.clock = c
	}
}

// WithCacheDuration sets how much history is kept for each dynamic transform.
func WithCacheDuration(d time.Duration) BufferOption {
	return func(b *Buffer) {
		if d > 0 {
			b.cacheDuration = d
		}
	}
}

// NewBuffer returns an empty Buffer.
func NewBuffer(opts ...BufferOption) *Buffer {
	b := &Buffer{
		clock:         clock.New(),
		cacheDuration: DefaultCacheDuration,
		edges:         map[string]*edge{},
		updated:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetTransform inserts tf into the buffer. Static transforms replace any previous value for the
// same child and never expire; dynamic transforms are appended to a history trimmed to the cache
// duration. Giving a child a new parent discards its old history.
func (b *Buffer) SetTransform(tf Transform, static bool) error {
	tf.Parent = CleanFrameName(tf.Parent)
	tf.Child = CleanFrameName(tf.Child)
	if tf.Parent == "" || tf.Child == "" {
		return ErrEmptyFrameName
	}
	if tf.Parent == tf.Child {
		return NewSelfParentError(tf.Child)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ancestor := range b.tracebackLocked(tf.Parent) {
		if ancestor == tf.Child {
			return NewCycleError(tf.Child, tf.Parent)
		}
	}

	e, ok := b.edges[tf.Child]
	if !ok || e.parent != tf.Parent || e.static != static {
		e = &edge{parent: tf.Parent, static: static}
		b.edges[tf.Child] = e
	}

	if static {
		e.samples = []Transform{tf}
	} else {
		e.insert(tf, b.cacheDuration)
	}

	// wake every waiting lookup
	close(b.updated)
	b.updated = make(chan struct{})
	return nil
}

func (e *edge) insert(tf Transform, cacheDuration time.Duration) {
	idx := sort.Search(len(e.samples), func(i int) bool {
		return !e.samples[i].Stamp.Before(tf.Stamp)
	})
	switch {
	case idx < len(e.samples) && e.samples[idx].Stamp.Equal(tf.Stamp):
		e.samples[idx] = tf
	default:
		e.samples = append(e.samples, Transform{})
		copy(e.samples[idx+1:], e.samples[idx:])
		e.samples[idx] = tf
	}

	cutoff := e.samples[len(e.samples)-1].Stamp.Add(-cacheDuration)
	keep := sort.Search(len(e.samples), func(i int) bool {
		return !e.samples[i].Stamp.Before(cutoff)
	})
	e.samples = e.samples[keep:]
}

// sampleAt returns the transform of the edge at the given time. A zero time returns the newest sample.
func (e *edge) sampleAt(child string, at time.Time) (Transform, error) {
	if e.static || at.IsZero() {
		return e.samples[len(e.samples)-1], nil
	}
	oldest, newest := e.samples[0], e.samples[len(e.samples)-1]
	if at.Before(oldest.Stamp) || at.After(newest.Stamp) {
		return Transform{}, NewExtrapolationError(child, at, oldest.Stamp, newest.Stamp)
	}
	idx := sort.Search(len(e.samples), func(i int) bool {
		return !e.samples[i].Stamp.Before(at)
	})
	after := e.samples[idx]
	if after.Stamp.Equal(at) || idx == 0 {
		return after, nil
	}
	before := e.samples[idx-1]
	span := after.Stamp.Sub(before.Stamp)
	by := float64(at.Sub(before.Stamp)) / float64(span)
	return Transform{
		Parent: before.Parent,
		Child:  before.Child,
		Stamp:  at,
		Pose:   spatial.Interpolate(before.Pose, after.Pose, by),
	}, nil
}

// tracebackLocked returns the frame and all its ancestors, ending at the root.
func (b *Buffer) tracebackLocked(frame string) []string {
	chain := []string{frame}
	for {
		e, ok := b.edges[frame]
		if !ok {
			return chain
		}
		frame = e.parent
		chain = append(chain, frame)
	}
}

func (b *Buffer) frameExistsLocked(name string) bool {
	if _, ok := b.edges[name]; ok {
		return true
	}
	for _, e := range b.edges {
		if e.parent == name {
			return true
		}
	}
	return false
}

// poseToAncestorsLocked walks from frame to the root, returning for each ancestor the pose of
// frame in that ancestor, and the oldest dynamic stamp used along the way.
func (b *Buffer) poseToAncestorsLocked(frame string, at time.Time) (map[string]spatial.Pose, []string, time.Time, error) {
	poses := map[string]spatial.Pose{frame: spatial.NewZeroPose()}
	order := []string{frame}
	var stamp time.Time

	pose := spatial.NewZeroPose()
	current := frame
	for {
		e, ok := b.edges[current]
		if !ok {
			return poses, order, stamp, nil
		}
		sample, err := e.sampleAt(current, at)
		if err != nil {
			return nil, nil, time.Time{}, err
		}
		if !e.static && (stamp.IsZero() || sample.Stamp.Before(stamp)) {
			stamp = sample.Stamp
		}
		pose = spatial.Compose(sample.Pose, pose)
		current = e.parent
		poses[current] = pose
		order = append(order, current)
	}
}

func (b *Buffer) lookupLocked(target, source string, at time.Time) (Transform, error) {
	if target == "" || source == "" {
		return Transform{}, ErrEmptyFrameName
	}
	if target == source {
		if !b.frameExistsLocked(target) {
			return Transform{}, NewFrameMissingError(target)
		}
		return Transform{Parent: target, Child: source, Stamp: at, Pose: spatial.NewZeroPose()}, nil
	}
	for _, name := range []string{target, source} {
		if !b.frameExistsLocked(name) {
			return Transform{}, NewFrameMissingError(name)
		}
	}

	sourcePoses, _, sourceStamp, err := b.poseToAncestorsLocked(source, at)
	if err != nil {
		return Transform{}, err
	}
	targetPoses, targetOrder, targetStamp, err := b.poseToAncestorsLocked(target, at)
	if err != nil {
		return Transform{}, err
	}

	// the first ancestor of target that is also an ancestor of source is the closest common one
	for _, common := range targetOrder {
		sourceInCommon, ok := sourcePoses[common]
		if !ok {
			continue
		}
		targetInCommon := targetPoses[common]
		stamp := at
		if stamp.IsZero() {
			stamp = oldestNonZero(sourceStamp, targetStamp)
		}
		return Transform{
			Parent: target,
			Child:  source,
			Stamp:  stamp,
			Pose:   spatial.Compose(spatial.PoseInverse(targetInCommon), sourceInCommon),
		}, nil
	}
	return Transform{}, NewFramesNotConnectedError(target, source)
}

func oldestNonZero(a, c time.Time) time.Time {
	switch {
	case a.IsZero():
		return c
	case c.IsZero():
		return a
	case c.Before(a):
		return c
	default:
		return a
	}
}

// CanTransform reports whether a transform from source to target is available right now.
func (b *Buffer) CanTransform(target, source string, at time.Time) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, err := b.lookupLocked(CleanFrameName(target), CleanFrameName(source), at)
	return err == nil
}

// LookupTransform returns the transform mapping points in source into target, waiting up to
// timeout for it to become available. A non-positive timeout does not wait.
func (b *Buffer) LookupTransform(
	ctx context.Context,
	target, source string,
	at time.Time,
	timeout time.Duration,
) (Transform, error) {
	target, source = CleanFrameName(target), CleanFrameName(source)

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := b.clock.Timer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		b.mu.RLock()
		tf, err := b.lookupLocked(target, source, at)
		updated := b.updated
		b.mu.RUnlock()
		if err == nil {
			return tf, nil
		}
		if deadline == nil || errors.Is(err, ErrEmptyFrameName) {
			return Transform{}, err
		}

		select {
		case <-updated:
		case <-deadline:
			return Transform{}, NewLookupTimeoutError(target, source, timeout, err)
		case <-ctx.Done():
			return Transform{}, errors.Wrapf(ctx.Err(), "lookup of %q in %q canceled", source, target)
		}
	}
}

// FrameNames returns the names of every frame known to the buffer, sorted.
func (b *Buffer) FrameNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	seen := map[string]struct{}{}
	for child, e := range b.edges {
		seen[child] = struct{}{}
		seen[e.parent] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parent returns the parent of the given frame, or false if it is a root or unknown.
func (b *Buffer) Parent(frame string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.edges[CleanFrameName(frame)]
	if !ok {
		return "", false
	}
	return e.parent, true
}
