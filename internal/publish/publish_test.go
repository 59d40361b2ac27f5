package publish_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-dev/argus/internal/publish"
	"github.com/argus-dev/argus/internal/store"
)

func snap(n int) store.Snapshot {
	return store.Snapshot{CompletedWork: make([]store.CompletedWorkItem, n)}
}

func TestSubscribe_ReceivesPublishedSnapshot(t *testing.T) {
	p := publish.New()
	ch, unsubscribe := p.Subscribe()
	defer unsubscribe()

	p.Publish(snap(1))
	select {
	case got := <-ch:
		assert.Len(t, got.CompletedWork, 1)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for publish")
	}
}

func TestPublish_CoalescesDropsOldestKeepsLatest(t *testing.T) {
	p := publish.New()
	ch, unsubscribe := p.Subscribe()
	defer unsubscribe()

	p.Publish(snap(1))
	p.Publish(snap(2))
	p.Publish(snap(3))

	select {
	case got := <-ch:
		assert.Len(t, got.CompletedWork, 3, "a slow subscriber only ever sees the latest snapshot")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for publish")
	}

	select {
	case <-ch:
		t.Fatal("expected only one coalesced value, not a queue of three")
	default:
	}
}

func TestUnsubscribe_IsIdempotent(t *testing.T) {
	p := publish.New()
	_, unsubscribe := p.Subscribe()
	unsubscribe()
	assert.NotPanics(t, func() { unsubscribe() })
}

func TestSubscriberCount(t *testing.T) {
	p := publish.New()
	assert.Equal(t, 0, p.SubscriberCount())

	_, unsub1 := p.Subscribe()
	_, unsub2 := p.Subscribe()
	assert.Equal(t, 2, p.SubscriberCount())

	unsub1()
	assert.Equal(t, 1, p.SubscriberCount())
	unsub2()
	assert.Equal(t, 0, p.SubscriberCount())
}

func TestClose_ClosesAllSubscriberChannels(t *testing.T) {
	p := publish.New()
	ch, _ := p.Subscribe()
	p.Close()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
	require.Equal(t, 0, p.SubscriberCount())
}

func TestPublish_MultipleSubscribersEachGetTheSnapshot(t *testing.T) {
	p := publish.New()
	ch1, unsub1 := p.Subscribe()
	ch2, unsub2 := p.Subscribe()
	defer unsub1()
	defer unsub2()

	p.Publish(snap(1))
	assertReceives(t, ch1)
	assertReceives(t, ch2)
}

func assertReceives(t *testing.T, ch <-chan store.Snapshot) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for publish")
	}
}
