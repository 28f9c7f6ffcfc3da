package eventhandler

import (
	"fmt"

	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// Subscribe attaches the handlers to bus. Nil handlers are skipped.
func Subscribe(bus shared.EventSubscriber, celebrations *CelebrationHandler, reminders *ReminderHandler) error {
	if celebrations != nil {
		for _, t := range celebrations.EventTypes() {
			if err := bus.Subscribe(t, celebrations.Handle); err != nil {
				return fmt.Errorf("subscribe %s: %w", t, err)
			}
		}
	}
	if reminders != nil {
		if err := bus.Subscribe(shared.EventReminderRequested, reminders.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", shared.EventReminderRequested, err)
		}
	}
	return nil
}
