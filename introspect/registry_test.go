package introspect

import (
	. "testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varlink/go/idl"
	"github.com/varlink/go/varlink"
	"github.com/varlink/go/wire"
)

const pingSource = `# Says hello.
interface org.example.ping

method Ping(name: string) -> (reply: string)
`

func mustParse(t *T, src string) *idl.Interface {
	iface, err := idl.Parse(src)
	require.Nil(t, err)
	return iface
}

func pingHandler(method string, params *wire.Value) (*wire.Value, error) {
	name, _ := params.Get("name")
	v := wire.ObjectFrom(wire.Pair{Key: "reply", Value: wire.Value{Kind: wire.String, StringVal: "hello, " + name.StringVal}})
	return &v, nil
}

func TestRegistryGetInfoListsServiceFirst(t *T) {
	r := NewRegistry("Example Corp", "pingd", "1.0", "https://example.org/pingd")
	r.Register(mustParse(t, pingSource), pingHandler)

	vendor, product, version, url, interfaces := r.GetInfo()
	assert.Equal(t, "Example Corp", vendor)
	assert.Equal(t, "pingd", product)
	assert.Equal(t, "1.0", version)
	assert.Equal(t, "https://example.org/pingd", url)
	require.Equal(t, []string{"org.varlink.service", "org.example.ping"}, interfaces)
}

func TestRegistryGetInterfaceDescriptionReformatsCanonically(t *T) {
	r := NewRegistry("v", "p", "1", "u")
	r.Register(mustParse(t, pingSource), pingHandler)

	desc, err := r.GetInterfaceDescription("org.example.ping")
	require.Nil(t, err)
	assert.Contains(t, desc, "interface org.example.ping")
	assert.Contains(t, desc, "method Ping(")
}

func TestRegistryGetInterfaceDescriptionUnknown(t *T) {
	r := NewRegistry("v", "p", "1", "u")
	_, err := r.GetInterfaceDescription("org.example.missing")
	require.NotNil(t, err)
}

func TestRegistryServeDispatchesToHandler(t *T) {
	r := NewRegistry("v", "p", "1", "u")
	r.Register(mustParse(t, pingSource), pingHandler)

	srv := varlink.NewServer()
	params := wire.ObjectFrom(wire.Pair{Key: "name", Value: wire.Value{Kind: wire.String, StringVal: "world"}})
	req := wire.Request{Method: "org.example.ping.Ping", Parameters: &params}
	frame, err := req.Marshal()
	require.Nil(t, err)
	require.Nil(t, srv.HandleInput(wire.EncodeFrame(frame)))

	require.Nil(t, r.Serve(srv))

	tx, ok := srv.PollTransmit()
	require.True(t, ok)
	reply, err := wire.DecodeReply(bytesTrimNul(tx))
	require.Nil(t, err)
	greeting, ok := reply.Parameters.Get("reply")
	require.True(t, ok)
	assert.Equal(t, "hello, world", greeting.StringVal)
}

func TestRegistryServeAnswersGetInfo(t *T) {
	r := NewRegistry("v", "p", "1", "u")
	r.Register(mustParse(t, pingSource), pingHandler)

	srv := varlink.NewServer()
	req := wire.Request{Method: "org.varlink.service.GetInfo"}
	frame, err := req.Marshal()
	require.Nil(t, err)
	require.Nil(t, srv.HandleInput(wire.EncodeFrame(frame)))

	require.Nil(t, r.Serve(srv))

	tx, ok := srv.PollTransmit()
	require.True(t, ok)
	reply, err := wire.DecodeReply(bytesTrimNul(tx))
	require.Nil(t, err)
	vendor, ok := reply.Parameters.Get("vendor")
	require.True(t, ok)
	assert.Equal(t, "v", vendor.StringVal)
}

func TestRegistryServeUnknownInterfaceReturnsError(t *T) {
	r := NewRegistry("v", "p", "1", "u")

	srv := varlink.NewServer()
	req := wire.Request{Method: "org.example.missing.Do"}
	frame, err := req.Marshal()
	require.Nil(t, err)
	require.Nil(t, srv.HandleInput(wire.EncodeFrame(frame)))

	require.Nil(t, r.Serve(srv))

	tx, ok := srv.PollTransmit()
	require.True(t, ok)
	reply, err := wire.DecodeReply(bytesTrimNul(tx))
	require.Nil(t, err)
	assert.NotEmpty(t, reply.Error)
}

func bytesTrimNul(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == 0 {
		return b[:len(b)-1]
	}
	return b
}
