package eventbus

import (
	"fmt"

	"github.com/rs/zerolog"
)

// NotifyMatcher decides which bus events deserve info-level logging.
// Satisfied by config.Config via its notify pattern globs.
type NotifyMatcher interface {
	NotifyMatch(eventType string) bool
}

// RegisterDebugLogger registers bus hooks that log all event activity.
// Events matching the notify patterns log at info level, the rest at
// debug. OnDrop and OnPanic always log at warn/error.
func RegisterDebugLogger(bus *EventBus, matcher NotifyMatcher, logger zerolog.Logger) {
	bus.OnPublish(func(event Event, _ any) {
		evt := logger.Debug()
		if matcher != nil && matcher.NotifyMatch(string(event)) {
			evt = logger.Info()
		}
		evt.Str("event", string(event)).Msg("event fired")
	})

	bus.OnDrop(func(event Event, _ any) {
		logger.Warn().Str("event", string(event)).Msg("event dropped: buffer full")
	})

	bus.OnPanic(func(event Event, _ any, recovered any) {
		logger.Error().
			Str("event", string(event)).
			Str("panic", fmt.Sprint(recovered)).
			Msg("subscriber panicked")
	})
}
