package rs

import "context"

// Hooks lets a caller observe conditions that the protocol says must never
// reach a Subscriber: an error raised after the subscriber already reached
// a terminal state, or an element produced after cancellation. This package
// never imports the root package (doing so would create an import cycle
// with the bridge that builds an Observable on top of a Publisher), so
// hooks are plain struct fields rather than package-level globals; the
// bridge wires them to the root package's OnUnhandledError/
// OnDroppedNotification.
type Hooks struct {
	OnUnhandledError      func(ctx context.Context, err error)
	OnDroppedNotification func(ctx context.Context, value any)
}

// DefaultHooks returns a Hooks value whose callbacks silently discard
// everything, which is what every operator in this package falls back to
// when constructed without explicit hooks.
func DefaultHooks() Hooks {
	return Hooks{
		OnUnhandledError:      func(context.Context, error) {},
		OnDroppedNotification: func(context.Context, any) {},
	}
}

func (h Hooks) withDefaults() Hooks {
	if h.OnUnhandledError == nil {
		h.OnUnhandledError = func(context.Context, error) {}
	}

	if h.OnDroppedNotification == nil {
		h.OnDroppedNotification = func(context.Context, any) {}
	}

	return h
}
