package varlink

import (
	. "testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varlink/go/wire"
)

func TestServerSimpleCallRoundTrip(t *T) {
	s := NewServer()
	require.Nil(t, s.HandleInput([]byte(`{"method":"org.example.Ping"}`)))
	require.Nil(t, s.HandleInput([]byte{0}))

	ev, ok := s.PollEvent()
	require.True(t, ok)
	assert.Equal(t, ServerRequest, ev.Kind)
	assert.Equal(t, "org.example.Ping", ev.Request.Method)

	require.Nil(t, s.SendReply(wire.Reply{}))

	tx, ok := s.PollTransmit()
	require.True(t, ok)
	assert.Equal(t, "{}\x00", string(tx))

	_, ok = s.PollEvent()
	assert.False(t, ok)
}

func TestServerHoldsFramesWhilePendingRequestOpen(t *T) {
	s := NewServer()
	require.Nil(t, s.HandleInput([]byte(`{"method":"a.B"}`)))
	require.Nil(t, s.HandleInput([]byte{0}))
	require.Nil(t, s.HandleInput([]byte(`{"method":"a.C"}`)))
	require.Nil(t, s.HandleInput([]byte{0}))

	ev, ok := s.PollEvent()
	require.True(t, ok)
	assert.Equal(t, "a.B", ev.Request.Method)

	// The second frame is already buffered but must not surface until
	// the first request's reply is sent.
	_, ok = s.PollEvent()
	assert.False(t, ok)

	require.Nil(t, s.SendReply(wire.Reply{}))

	ev, ok = s.PollEvent()
	require.True(t, ok)
	assert.Equal(t, "a.C", ev.Request.Method)
}

func TestServerStreamingMoreCall(t *T) {
	s := NewServer()
	require.Nil(t, s.HandleInput([]byte(`{"method":"a.Tick","more":true}`)))
	require.Nil(t, s.HandleInput([]byte{0}))

	ev, ok := s.PollEvent()
	require.True(t, ok)
	assert.True(t, ev.Request.More)

	require.Nil(t, s.SendReply(wire.Reply{Continues: true}))
	require.Nil(t, s.SendReply(wire.Reply{Continues: true}))
	require.Nil(t, s.SendReply(wire.Reply{}))

	var frames []string
	for {
		tx, ok := s.PollTransmit()
		if !ok {
			break
		}
		frames = append(frames, string(tx))
	}
	require.Len(t, frames, 3)
	assert.Equal(t, `{"continues":true}`+"\x00", frames[0])
	assert.Equal(t, "{}\x00", frames[2])

	// Terminal reply already sent: further replies fail.
	err := s.SendReply(wire.Reply{})
	require.NotNil(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindProtocolMisuse, verr.Kind)
}

func TestServerContinuesOnNonMoreRequestIsProtocolMisuse(t *T) {
	s := NewServer()
	require.Nil(t, s.HandleInput([]byte(`{"method":"a.B"}`)))
	require.Nil(t, s.HandleInput([]byte{0}))
	_, ok := s.PollEvent()
	require.True(t, ok)

	err := s.SendReply(wire.Reply{Continues: true})
	require.NotNil(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindProtocolMisuse, verr.Kind)
}

func TestServerSecondReplyToNonMoreRequestIsProtocolMisuse(t *T) {
	s := NewServer()
	require.Nil(t, s.HandleInput([]byte(`{"method":"a.B"}`)))
	require.Nil(t, s.HandleInput([]byte{0}))
	_, ok := s.PollEvent()
	require.True(t, ok)

	require.Nil(t, s.SendReply(wire.Reply{}))
	err := s.SendReply(wire.Reply{})
	require.NotNil(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindProtocolMisuse, verr.Kind)
}

func TestServerOneWayRequestDiscardsPendingImmediately(t *T) {
	s := NewServer()
	require.Nil(t, s.HandleInput([]byte(`{"method":"a.B","oneway":true}`)))
	require.Nil(t, s.HandleInput([]byte{0}))

	ev, ok := s.PollEvent()
	require.True(t, ok)
	assert.True(t, ev.Request.OneWay)

	err := s.SendReply(wire.Reply{})
	require.NotNil(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindProtocolMisuse, verr.Kind)

	_, ok = s.PollTransmit()
	assert.False(t, ok)
}

func TestServerOneWayThenNextRequestIsNotHeld(t *T) {
	s := NewServer()
	require.Nil(t, s.HandleInput([]byte(`{"method":"a.B","oneway":true}`)))
	require.Nil(t, s.HandleInput([]byte{0}))
	require.Nil(t, s.HandleInput([]byte(`{"method":"a.C"}`)))
	require.Nil(t, s.HandleInput([]byte{0}))

	ev, ok := s.PollEvent()
	require.True(t, ok)
	assert.Equal(t, "a.B", ev.Request.Method)

	ev, ok = s.PollEvent()
	require.True(t, ok)
	assert.Equal(t, "a.C", ev.Request.Method)
}

func TestServerUpgradeTransitionsAfterSingleReply(t *T) {
	s := NewServer()
	require.Nil(t, s.HandleInput([]byte(`{"method":"a.Bridge","upgrade":true}`)))
	require.Nil(t, s.HandleInput([]byte{0}))
	require.Nil(t, s.HandleInput([]byte("raw-follow-on")))

	ev, ok := s.PollEvent()
	require.True(t, ok)
	assert.True(t, ev.Request.Upgrade)

	require.Nil(t, s.SendReply(wire.Reply{}))

	ev, ok = s.PollEvent()
	require.True(t, ok)
	assert.Equal(t, ServerUpgrade, ev.Kind)
	assert.Equal(t, "raw-follow-on", string(ev.TrailingBytes))

	err := s.SendReply(wire.Reply{})
	require.NotNil(t, err)
}

func TestServerUpgradeErrorReplyDoesNotUpgrade(t *T) {
	s := NewServer()
	require.Nil(t, s.HandleInput([]byte(`{"method":"a.Bridge","upgrade":true}`)))
	require.Nil(t, s.HandleInput([]byte{0}))
	_, ok := s.PollEvent()
	require.True(t, ok)

	require.Nil(t, s.SendReply(wire.Reply{Error: "a.Refused"}))

	_, ok = s.PollEvent()
	assert.False(t, ok)
}

func TestServerMalformedFrameIsProtocolError(t *T) {
	s := NewServer()
	require.Nil(t, s.HandleInput([]byte("not json")))
	require.Nil(t, s.HandleInput([]byte{0}))

	ev, ok := s.PollEvent()
	require.True(t, ok)
	assert.Equal(t, ServerProtocolError, ev.Kind)
	assert.Equal(t, KindPeerProtocolError, ev.Err.Kind)

	_, ok = s.PollEvent()
	assert.False(t, ok)
}

func TestServerSendReplyWithNoPendingRequestIsProtocolMisuse(t *T) {
	s := NewServer()
	err := s.SendReply(wire.Reply{})
	require.NotNil(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindProtocolMisuse, verr.Kind)
}
