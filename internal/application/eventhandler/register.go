package eventhandler

import (
	"fmt"

	"github.com/alem-hub/gradebook/internal/domain/shared"
)

// Subscribable - обработчик, который сам знает свои типы событий.
type Subscribable interface {
	EventTypes() []shared.EventType
	Handle(event shared.Event) error
}

// Register подписывает обработчики на все их типы событий.
func Register(bus shared.EventSubscriber, handlers ...Subscribable) error {
	for _, h := range handlers {
		for _, t := range h.EventTypes() {
			if err := bus.Subscribe(t, h.Handle); err != nil {
				return fmt.Errorf("subscribe %T to %s: %w", h, t, err)
			}
		}
	}
	return nil
}
