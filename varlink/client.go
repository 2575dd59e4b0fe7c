package varlink

import "github.com/varlink/go/wire"

// ClientEventKind tags the variant a ClientEvent holds.
type ClientEventKind int

const (
	ClientReply ClientEventKind = iota
	ClientUpgraded
	ClientProtocolError
)

// ClientEvent is one event PollEvent hands to the host. Exactly one of
// the fields relevant to Kind is populated, per the tagged-union
// discipline used throughout this package.
type ClientEvent struct {
	Kind ClientEventKind

	// Populated for ClientReply.
	Method string
	Reply  wire.Reply
	Final  bool

	// Populated for ClientUpgraded.
	TrailingBytes []byte

	// Populated for ClientProtocolError.
	Err *Error
}

// Client is the sans-IO varlink client state machine: it owns no
// socket, thread, or timer, and is driven entirely through
// HandleInput/PollTransmit/SendRequest/PollEvent/Close.
type Client struct {
	dec         *wire.Decoder
	outbox      [][]byte
	pending     []ClientEvent
	outstanding *OutstandingCall
	nextID      uint64
	closed      bool
	upgraded    bool
}

// NewClient returns a Client ready to send its first request.
func NewClient() *Client {
	return &Client{dec: wire.NewDecoder()}
}

// SendRequest queues method as an outgoing Request. It fails with a
// Busy error if a Normal or Upgrade call is still Open; issuing a new
// request while a More call is Open implicitly abandons that call the
// way the protocol expects cancellation to work — by moving on, since
// varlink has no in-band cancellation.
func (c *Client) SendRequest(method string, req wire.Request) error {
	if c.closed {
		return &Error{Kind: KindClosed}
	}
	if c.outstanding != nil && c.outstanding.Open && c.outstanding.Mode != ModeMore {
		return &Error{Kind: KindBusy}
	}

	req.Method = method
	if err := req.Validate(); err != nil {
		return &Error{Kind: KindProtocolMisuse, Message: err.Error(), Cause: err}
	}

	frame, err := req.Marshal()
	if err != nil {
		return &Error{Kind: KindJSON, Message: err.Error(), Cause: err}
	}
	c.outbox = append(c.outbox, wire.EncodeFrame(frame))

	mode := modeOf(req.More, req.OneWay, req.Upgrade)
	id := c.nextID
	c.nextID++
	if mode == ModeOneWay {
		c.outstanding = nil
	} else {
		c.outstanding = &OutstandingCall{ID: id, Method: method, Mode: mode, Open: true}
	}
	return nil
}

// HandleInput appends bytes to the decode buffer. It never emits
// events directly; call PollEvent to drive decoding forward.
func (c *Client) HandleInput(b []byte) error {
	if c.closed {
		return &Error{Kind: KindClosed}
	}
	c.dec.Append(b)
	return nil
}

// PollTransmit returns the next queued outgoing frame, if any.
func (c *Client) PollTransmit() ([]byte, bool) {
	if len(c.outbox) == 0 {
		return nil, false
	}
	tx := c.outbox[0]
	c.outbox = c.outbox[1:]
	return tx, true
}

// Close marks the machine terminal. Subsequent SendRequest/HandleInput
// calls fail with Closed; PollTransmit still drains queued frames but
// PollEvent emits nothing further.
func (c *Client) Close() {
	c.closed = true
	c.pending = nil
}

// PollEvent drives the decode buffer forward and returns the next
// ClientEvent, if one is ready.
func (c *Client) PollEvent() (ClientEvent, bool) {
	if len(c.pending) > 0 {
		e := c.pending[0]
		c.pending = c.pending[1:]
		return e, true
	}
	if c.closed || c.upgraded {
		return ClientEvent{}, false
	}

	frame, ok, err := c.dec.TakeFrame()
	if err != nil {
		return c.fail(classifyFrameErr(err)), true
	}
	if !ok {
		return ClientEvent{}, false
	}

	reply, err := wire.DecodeReply(frame)
	if err != nil {
		return c.fail(&Error{Kind: KindPeerProtocolError, Message: err.Error(), Cause: err}), true
	}

	if c.outstanding == nil || !c.outstanding.Open {
		return c.fail(&Error{Kind: KindPeerProtocolError, Message: "reply received with no outstanding call"}), true
	}

	switch c.outstanding.Mode {
	case ModeNormal:
		if reply.Continues {
			return c.fail(&Error{Kind: KindPeerProtocolError, Message: "continues set on a normal call's reply"}), true
		}
		c.outstanding.Open = false
		return ClientEvent{Kind: ClientReply, Method: c.outstanding.Method, Reply: reply, Final: true}, true

	case ModeMore:
		final := !reply.Continues || reply.Error != ""
		if final {
			c.outstanding.Open = false
		}
		return ClientEvent{Kind: ClientReply, Method: c.outstanding.Method, Reply: reply, Final: final}, true

	case ModeOneWay:
		return c.fail(&Error{Kind: KindPeerProtocolError, Message: "reply received for a oneway call"}), true

	case ModeUpgrade:
		c.outstanding.Open = false
		event := ClientEvent{Kind: ClientReply, Method: c.outstanding.Method, Reply: reply, Final: true}
		if reply.Error == "" {
			c.upgraded = true
			c.pending = append(c.pending, ClientEvent{Kind: ClientUpgraded, TrailingBytes: c.dec.DrainRemaining()})
		}
		return event, true

	default:
		return c.fail(&Error{Kind: KindPeerProtocolError, Message: "unknown call mode"}), true
	}
}

// fail transitions the machine to closed and builds the single
// terminal ClientProtocolError event: once emitted, PollEvent has
// nothing further to return.
func (c *Client) fail(err *Error) ClientEvent {
	c.closed = true
	c.pending = nil
	return ClientEvent{Kind: ClientProtocolError, Err: err}
}

func classifyFrameErr(err error) *Error {
	if fe, ok := err.(*wire.FrameError); ok {
		return &Error{Kind: KindFrame, Message: fe.Error(), Cause: fe}
	}
	return &Error{Kind: KindJSON, Message: err.Error(), Cause: err}
}
