package cache

import (
	"fmt"
	"strings"
)

// Func is a pure function whose results can be memoized.
type Func[V any] func(args ...any) (V, error)

// Memoize wraps fn so that repeated calls with equal arguments are served
// from the backing cache instead of re-invoking fn.
//
// Arguments are serialized with their Go-syntax representation to form the
// cache key, so they must have a stable formatting (strings, numbers,
// booleans, and structs of those). Errors are not cached: a failed call
// leaves the cache untouched, and the next call with the same arguments
// invokes fn again.
//
// The wrapper is backed by the provided cache instance, so capacity and TTL
// behavior follow that cache's configuration.
func Memoize[V any](c *Cache[string, V], fn Func[V]) Func[V] {
	return func(args ...any) (V, error) {
		key := argsKey(args)

		if v, ok := c.Get(key); ok {
			return v, nil
		}

		v, err := fn(args...)
		if err != nil {
			var zero V
			return zero, err
		}

		c.Put(key, v)
		return v, nil
	}
}

// NewMemoized is a convenience constructor building the backing cache and
// the memoized function in one call.
func NewMemoized[V any](maxSize int, fn Func[V], opts ...Option[string, V]) (Func[V], *Cache[string, V], error) {
	c, err := New[string, V](maxSize, opts...)
	if err != nil {
		return nil, nil, err
	}
	return Memoize(c, fn), c, nil
}

// argsKey serializes the argument list into a deterministic cache key.
func argsKey(args []any) string {
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "%#v", a)
	}
	return b.String()
}
