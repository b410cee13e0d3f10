package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_OrderedDelivery(t *testing.T) {
	ch := NewChannel()
	for i := 0; i < 100; i++ {
		require.True(t, ch.Publish(Event{Kind: EventProgress, Done: i}))
	}
	assert.Equal(t, 100, ch.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []int
	err := ch.Drain(ctx, func(ev Event) {
		got = append(got, ev.Done)
		if len(got) == 100 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 100)
	for i, done := range got {
		assert.Equal(t, i, done)
	}
	assert.Equal(t, 0, ch.Len())
}

func TestChannel_ConcurrentPublish(t *testing.T) {
	ch := NewChannel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		for i := 0; i < 50; i++ {
			ch.Publish(Event{Kind: EventProgress, Done: i})
		}
		ch.Publish(Event{Kind: EventFinished})
	}()

	var got []Event
	_ = ch.Drain(ctx, func(ev Event) {
		got = append(got, ev)
		if ev.Kind == EventFinished {
			cancel()
		}
	})
	require.Len(t, got, 51)
	for i := 0; i < 50; i++ {
		assert.Equal(t, i, got[i].Done)
	}
}

func TestChannel_KeepsEventsBetweenDrains(t *testing.T) {
	ch := NewChannel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, ch.Drain(ctx, func(Event) { t.Fatal("no consumer expected") }))

	ch.Publish(Event{Kind: EventFinished, TaskID: "a"})

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	var got []string
	_ = ch.Drain(ctx, func(ev Event) {
		got = append(got, ev.TaskID)
		cancel()
	})
	assert.Equal(t, []string{"a"}, got)
}

func TestChannel_SingleConsumer(t *testing.T) {
	ch := NewChannel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entered := make(chan struct{})
	done := make(chan struct{})
	ch.Publish(Event{Kind: EventStarted})
	go func() {
		defer close(done)
		_ = ch.Drain(ctx, func(Event) { close(entered) })
	}()
	<-entered

	assert.ErrorIs(t, ch.Drain(ctx, func(Event) {}), ErrChannelBusy)
	cancel()
	<-done
}

func TestChannel_Close(t *testing.T) {
	ch := NewChannel()
	ch.Publish(Event{Kind: EventStarted})
	ch.Close()

	assert.False(t, ch.Publish(Event{Kind: EventFinished}))
	assert.Equal(t, 0, ch.Len())
	assert.NoError(t, ch.Drain(context.Background(), func(Event) { t.Fatal("closed channel delivered") }))
}
