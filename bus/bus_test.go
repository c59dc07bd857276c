package bus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverRunsHandlersAndReplies(t *testing.T) {
	m := NewMemory()
	ch := m.Channel("c1")
	ch.On("configuration-requested", func(msg Message, reply Reply) {
		assert.Equal(t, "https://assets.example", msg.Origin)
		require.NoError(t, reply(map[string]string{"acsUrl": "https://acs"}))
	})

	var got json.RawMessage
	err := m.Deliver("c1", Message{Event: "configuration-requested", Origin: "https://assets.example"}, ReplyJSON(func(raw json.RawMessage) {
		got = raw
	}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"acsUrl":"https://acs"}`, string(got))
}

func TestEmitReachesListeners(t *testing.T) {
	m := NewMemory()
	ch := m.Channel("c1")
	var seen []Message
	m.Listen("c1", func(msg Message) { seen = append(seen, msg) })

	require.NoError(t, ch.Emit("ping", map[string]int{"n": 1}))
	require.Len(t, seen, 1)
	assert.Equal(t, "ping", seen[0].Event)
	assert.JSONEq(t, `{"n":1}`, string(seen[0].Payload))
}

func TestTeardownClosesChannel(t *testing.T) {
	m := NewMemory()
	ch := m.Channel("c1")
	calls := 0
	ch.On("x", func(Message, Reply) { calls++ })
	assert.True(t, m.Open("c1"))

	ch.Teardown()
	ch.Teardown()

	assert.False(t, m.Open("c1"))
	assert.ErrorIs(t, m.Deliver("c1", Message{Event: "x"}, nil), ErrChannelClosed)
	assert.ErrorIs(t, ch.Emit("x", nil), ErrChannelClosed)
	assert.Zero(t, calls)
}

func TestHandlerMayTearDownDuringDelivery(t *testing.T) {
	m := NewMemory()
	ch := m.Channel("c1")
	ch.On("done", func(Message, Reply) { ch.Teardown() })
	require.NoError(t, m.Deliver("c1", Message{Event: "done"}, nil))
	assert.False(t, m.Open("c1"))
}
