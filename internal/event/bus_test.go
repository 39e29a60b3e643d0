package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusFanOut(t *testing.T) {
	bus := NewBus()
	a, cancelA := bus.Subscribe(4)
	defer cancelA()
	b, cancelB := bus.Subscribe(4)
	defer cancelB()

	n := bus.Publish(New("s1", TypeStatus, map[string]bool{"thinking": true}))
	require.Equal(t, 2, n)

	for _, ch := range []<-chan Event{a, b} {
		evt := <-ch
		assert.Equal(t, TypeStatus, evt.Type)
		assert.Equal(t, "s1", evt.SessionID)
		assert.NotZero(t, evt.Timestamp)
	}
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	assert.Equal(t, 1, bus.Publish(New("s", TypeMessage, "first")))
	assert.Equal(t, 0, bus.Publish(New("s", TypeMessage, "second")))

	evt := <-ch
	assert.Equal(t, "first", evt.Data)
}

func TestBusCancelClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, bus.Publish(New("s", TypeMessage, nil)))
}

func TestBusClose(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	bus.Close()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	late, _ := bus.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)
}
