package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusPublishSubscribe(t *testing.T) {
	eb := NewEventBus()
	ch := make(chan interface{}, 1)
	eb.Subscribe(PaymentReceived, ch)

	eb.Publish(PaymentReceived, IncomingPayment{Amount: 21})

	select {
	case data := <-ch:
		assert.Equal(t, uint64(21), data.(IncomingPayment).Amount)
	default:
		t.Fatal("subscriber did not receive event")
	}
}

func TestEventBusNeverBlocks(t *testing.T) {
	eb := NewEventBus()
	full := make(chan interface{}) // unbuffered, nobody reading
	eb.Subscribe(BackupPublished, full)

	// both publishes must return, the dead subscriber is dropped
	eb.Publish(BackupPublished, "mint")
	eb.Publish(BackupPublished, "mint")
}

func TestEventBusUnsubscribe(t *testing.T) {
	eb := NewEventBus()
	ch := make(chan interface{}, 1)
	eb.Subscribe(MintConnected, ch)
	eb.Unsubscribe(MintConnected, ch)

	eb.Publish(MintConnected, "url")
	select {
	case <-ch:
		t.Fatal("unsubscribed channel received event")
	default:
	}
}
