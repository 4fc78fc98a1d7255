package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DeliveryOrder(t *testing.T) {
	b := New[string]()
	var got []string

	b.Subscribe(func(v string) { got = append(got, "a:"+v) })
	b.Subscribe(func(v string) { got = append(got, "b:"+v) })
	b.Subscribe(func(v string) { got = append(got, "c:"+v) })

	b.Publish("1")
	b.Publish("2")

	assert.Equal(t, []string{"a:1", "b:1", "c:1", "a:2", "b:2", "c:2"}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New[int]()
	var got []int

	first := b.Subscribe(func(v int) { got = append(got, v) })
	b.Subscribe(func(v int) { got = append(got, v*10) })

	assert.True(t, b.Unsubscribe(first))
	assert.False(t, b.Unsubscribe(first))
	assert.Equal(t, 1, b.Len())

	b.Publish(2)
	assert.Equal(t, []int{20}, got)
}

func TestBus_SubscribeDuringPublish(t *testing.T) {
	b := New[int]()
	calls := 0
	b.Subscribe(func(int) {
		calls++
		b.Subscribe(func(int) { calls += 100 })
	})

	b.Publish(1)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, b.Len())
}

func TestBus_NoSubscribers(t *testing.T) {
	assert.NotPanics(t, func() { New[struct{}]().Publish(struct{}{}) })
}
