// Package bridgehttp exposes a varlink service over JSON-RPC 2.0 HTTP:
// an http.Handler that forwards each request to a backend rather than
// serving it directly. Here the "backend" is always a single varlink
// address, and the forwarding hop translates between wire formats
// instead of merely relaying a body.
package bridgehttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/levenlabs/go-llog"
	"github.com/levenlabs/golib/rpcutil"

	"github.com/varlink/go/transport"
	"github.com/varlink/go/varlink"
	"github.com/varlink/go/wire"
)

// Handler forwards JSON-RPC 2.0 calls to a single varlink service
// address, one dial per HTTP request.
type Handler struct {
	Addr transport.Address

	// Dial opens the backend connection. Defaults to transport.Dial;
	// tests substitute an in-memory net.Pipe so the bridge can be
	// exercised without a real listener.
	Dial func(ctx context.Context, addr transport.Address) (transport.ReadWriteCloser, error)

	codec *json2.Codec
}

// NewHandler returns a Handler that dials addr for every request.
func NewHandler(addr transport.Address) *Handler {
	return &Handler{Addr: addr, Dial: transport.Dial, codec: json2.NewCodec()}
}

// streamingRequest is the subset of an extended JSON-RPC 2.0 request
// body this bridge understands well enough to reject: HTTP request and
// response have no representation for a varlink streaming or upgrade
// reply, so a caller asking for one gets a 400 rather than a
// silently-truncated response.
type streamingRequest struct {
	More    bool `json:"more"`
	OneWay  bool `json:"oneway"`
	Upgrade bool `json:"upgrade"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kv := rpcutil.RequestKV(r)
	if r.Method != http.MethodPost {
		llog.Warn("bridgehttp: rejecting non-POST request", kv)
		writeErrorf(w, http.StatusMethodNotAllowed, "bridgehttp: POST required, received %q", r.Method)
		return
	}

	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		writeErrorf(w, http.StatusBadRequest, "bridgehttp: reading request body: %v", err)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var sreq streamingRequest
	if err := json.Unmarshal(body, &sreq); err == nil && (sreq.More || sreq.OneWay || sreq.Upgrade) {
		llog.Warn("bridgehttp: rejecting streaming/upgrade call", kv)
		writeErrorf(w, http.StatusBadRequest, "bridgehttp: more/oneway/upgrade calls are not supported over HTTP")
		return
	}

	codecReq := h.codec.NewRequest(r)
	method, err := codecReq.Method()
	if err != nil {
		llog.Warn("bridgehttp: could not read method", llog.KV{"error": err})
		codecReq.WriteError(w, http.StatusBadRequest, err)
		return
	}
	kv["method"] = method

	var rawParams json.RawMessage
	if err := codecReq.ReadRequest(&rawParams); err != nil {
		kv["error"] = err
		llog.Warn("bridgehttp: could not read params", kv)
		codecReq.WriteError(w, http.StatusBadRequest, err)
		return
	}

	var params *wire.Value
	if len(rawParams) > 0 {
		v, err := wire.ParseValue(rawParams)
		if err != nil {
			codecReq.WriteError(w, http.StatusBadRequest, fmt.Errorf("bridgehttp: params is not valid JSON: %w", err))
			return
		}
		if v.Kind != wire.Object && !v.IsNull() {
			codecReq.WriteError(w, http.StatusBadRequest, errors.New("bridgehttp: params must be a JSON object"))
			return
		}
		if v.Kind == wire.Object {
			params = &v
		}
	}

	reply, err := h.call(r.Context(), method, params)
	if err != nil {
		kv["error"] = err
		llog.Error("bridgehttp: error forwarding call", kv)
		codecReq.WriteError(w, http.StatusBadGateway, err)
		return
	}
	if reply.Error != "" {
		codecReq.WriteError(w, http.StatusOK, errors.New(reply.Error))
		return
	}
	codecReq.WriteResponse(w, reply.Parameters)
}

// call dials the configured address, drives a fresh varlink.Client
// through a single Normal call, and returns the terminal reply.
func (h *Handler) call(ctx context.Context, method string, params *wire.Value) (wire.Reply, error) {
	conn, err := h.Dial(ctx, h.Addr)
	if err != nil {
		return wire.Reply{}, fmt.Errorf("bridgehttp: dialing %s: %w", h.Addr, err)
	}
	defer conn.Close()

	client := varlink.NewClient()
	if err := client.SendRequest(method, wire.Request{Parameters: params}); err != nil {
		return wire.Reply{}, fmt.Errorf("bridgehttp: sending request: %w", err)
	}

	tx, ok := client.PollTransmit()
	if !ok {
		return wire.Reply{}, errors.New("bridgehttp: nothing queued to transmit after send_request")
	}
	if _, err := conn.Write(tx); err != nil {
		return wire.Reply{}, fmt.Errorf("bridgehttp: writing request: %w", err)
	}

	buf := make([]byte, 64*1024)
	for {
		ev, ok := client.PollEvent()
		if ok {
			switch ev.Kind {
			case varlink.ClientProtocolError:
				return wire.Reply{}, fmt.Errorf("bridgehttp: %w", ev.Err)
			case varlink.ClientReply:
				return ev.Reply, nil
			default:
				continue
			}
		}

		n, err := conn.Read(buf)
		if n > 0 {
			if herr := client.HandleInput(buf[:n]); herr != nil {
				return wire.Reply{}, herr
			}
		}
		if err != nil {
			if err == io.EOF {
				return wire.Reply{}, errors.New("bridgehttp: connection closed before a reply arrived")
			}
			return wire.Reply{}, fmt.Errorf("bridgehttp: reading reply: %w", err)
		}
	}
}

func writeErrorf(w http.ResponseWriter, status int, format string, args ...interface{}) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, format, args...)
}
