package varlink

import "github.com/varlink/go/wire"

// ServerEventKind tags the variant a ServerEvent holds.
type ServerEventKind int

const (
	ServerRequest ServerEventKind = iota
	ServerUpgrade
	ServerProtocolError
)

// ServerEvent is one event PollEvent hands to the host.
type ServerEvent struct {
	Kind ServerEventKind

	// Populated for ServerRequest.
	Request wire.Request

	// Populated for ServerUpgrade.
	TrailingBytes []byte

	// Populated for ServerProtocolError.
	Err *Error
}

// Server is the sans-IO varlink server state machine: it owns no
// socket, thread, or timer, and is driven entirely through
// HandleInput/PollTransmit/PollEvent/SendReply/Close.
type Server struct {
	dec     *wire.Decoder
	outbox  [][]byte
	pending []ServerEvent

	// req is the current PendingRequest — the most recent Request for
	// which no terminal reply has been sent yet. nil when there is
	// none, including immediately after a oneway request is emitted.
	req *wire.Request

	closed   bool
	upgraded bool
}

// NewServer returns a Server ready to receive its first request.
func NewServer() *Server {
	return &Server{dec: wire.NewDecoder()}
}

// HandleInput appends bytes to the decode buffer.
func (s *Server) HandleInput(b []byte) error {
	if s.closed {
		return &Error{Kind: KindClosed}
	}
	s.dec.Append(b)
	return nil
}

// PollTransmit returns the next queued outgoing frame, if any.
func (s *Server) PollTransmit() ([]byte, bool) {
	if len(s.outbox) == 0 {
		return nil, false
	}
	tx := s.outbox[0]
	s.outbox = s.outbox[1:]
	return tx, true
}

// Close marks the machine terminal.
func (s *Server) Close() { s.closed = true }

// PollEvent drives the decode buffer forward and returns the next
// ServerEvent. While a PendingRequest exists, no new Request event is
// emitted even if further frames are already buffered.
func (s *Server) PollEvent() (ServerEvent, bool) {
	if len(s.pending) > 0 {
		e := s.pending[0]
		s.pending = s.pending[1:]
		return e, true
	}
	if s.closed || s.upgraded || s.req != nil {
		return ServerEvent{}, false
	}

	frame, ok, err := s.dec.TakeFrame()
	if err != nil {
		return s.fail(classifyFrameErr(err)), true
	}
	if !ok {
		return ServerEvent{}, false
	}

	req, err := wire.DecodeRequest(frame)
	if err != nil {
		return s.fail(&Error{Kind: KindPeerProtocolError, Message: err.Error(), Cause: err}), true
	}

	if !req.OneWay {
		s.req = &req
	}
	return ServerEvent{Kind: ServerRequest, Request: req}, true
}

// SendReply answers the current PendingRequest. It fails with
// ProtocolMisuse if there is none — including when the request was
// oneway, whose PendingRequest is discarded the moment it is emitted —
// or if the reply misuses the more/continues contract.
func (s *Server) SendReply(reply wire.Reply) error {
	if s.closed {
		return &Error{Kind: KindClosed}
	}
	if s.req == nil {
		return &Error{Kind: KindProtocolMisuse, Message: "no pending request to reply to"}
	}
	req := *s.req

	if reply.Continues && !req.More {
		return &Error{Kind: KindProtocolMisuse, Message: "continues set on a reply to a non-more request"}
	}
	if err := reply.Validate(); err != nil {
		return &Error{Kind: KindProtocolMisuse, Message: err.Error(), Cause: err}
	}

	frame, err := reply.Marshal()
	if err != nil {
		return &Error{Kind: KindJSON, Message: err.Error(), Cause: err}
	}
	s.outbox = append(s.outbox, wire.EncodeFrame(frame))

	terminal := !req.More || !reply.Continues || reply.Error != ""
	if terminal {
		s.req = nil
		if req.Upgrade && reply.Error == "" {
			s.upgraded = true
			s.pending = append(s.pending, ServerEvent{Kind: ServerUpgrade, TrailingBytes: s.dec.DrainRemaining()})
		}
	}
	return nil
}

func (s *Server) fail(err *Error) ServerEvent {
	s.closed = true
	s.req = nil
	s.pending = nil
	return ServerEvent{Kind: ServerProtocolError, Err: err}
}
