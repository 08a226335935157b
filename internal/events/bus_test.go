package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DispatchInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe(EventTransaction, func(Event) error {
		order = append(order, "first")
		return nil
	})
	bus.Subscribe(EventTransaction, func(Event) error {
		order = append(order, "second")
		return nil
	})

	bus.Publish(Event{Type: EventTransaction})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestBus_HandlerErrorDoesNotStopDispatch(t *testing.T) {
	bus := NewBus()
	var reached bool
	bus.Subscribe(EventOfferChanged, func(Event) error {
		return errors.New("bad payload")
	})
	bus.Subscribe(EventOfferChanged, func(Event) error {
		reached = true
		return nil
	})

	bus.Publish(Event{Type: EventOfferChanged})

	assert.True(t, reached)
}

func TestBus_PublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() {
		bus.Publish(Event{Type: EventCashStackChanged})
	})
}
