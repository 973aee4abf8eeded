// Package inject provides fakes whose behavior tests supply function by function.
package inject

import (
	"context"
	"time"

	"go.viam.com/navgoal/referenceframe"
)

// TransformProvider is an injected transform provider.
type TransformProvider struct {
	referenceframe.TransformProvider
	LookupTransformFunc func(ctx context.Context, target, source string, at time.Time, timeout time.Duration) (referenceframe.Transform, error)
}

// LookupTransform calls the injected LookupTransform or the real version.
func (tp *TransformProvider) LookupTransform(
	ctx context.Context,
	target, source string,
	at time.Time,
	timeout time.Duration,
) (referenceframe.Transform, error) {
	if tp.LookupTransformFunc == nil {
		return tp.TransformProvider.LookupTransform(ctx, target, source, at, timeout)
	}
	return tp.LookupTransformFunc(ctx, target, source, at, timeout)
}
