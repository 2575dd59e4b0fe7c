// Package introspect implements org.varlink.service, the
// self-description interface every varlink service exposes: GetInfo
// and GetInterfaceDescription, built on the *idl.Interface model from
// package idl rather than reflection over Go types.
package introspect

import (
	"fmt"
	"sort"

	"github.com/levenlabs/go-llog"

	"github.com/varlink/go/idl"
	"github.com/varlink/go/varlink"
	"github.com/varlink/go/wire"
)

const serviceInterfaceName = "org.varlink.service"

// MethodHandler answers one call for a registered interface. params is
// the decoded request Parameters (nil when the call carried none); the
// returned Value becomes the reply's Parameters. A returned
// *ApplicationError becomes a varlink error reply carrying its Name and
// Params; any other non-nil error, whatever its type, is answered with
// org.varlink.service.InvalidParameter carrying the error text.
type MethodHandler func(method string, params *wire.Value) (*wire.Value, error)

// ApplicationError carries a varlink error reply — a qualified error
// name and its parameters — back out of a MethodHandler without
// involving the machine-level Error taxonomy at all: it is not a
// machine error, it is an ordinary application-level reply.
type ApplicationError struct {
	Name   string
	Params *wire.Value
}

func (e *ApplicationError) Error() string { return "introspect: " + e.Name }

type registeredInterface struct {
	iface   *idl.Interface
	text    string
	handler MethodHandler
}

// Registry holds every interface a service implements plus its
// dispatch handler, and answers org.varlink.service calls about the
// set as a whole.
type Registry struct {
	vendor, product, version, url string

	order      []string
	interfaces map[string]*registeredInterface
}

// NewRegistry returns an empty Registry describing itself with the
// four fields org.varlink.service.GetInfo reports back to callers.
func NewRegistry(vendor, product, version, url string) *Registry {
	return &Registry{
		vendor:     vendor,
		product:    product,
		version:    version,
		url:        url,
		interfaces: map[string]*registeredInterface{},
	}
}

// Register adds iface to the registry, formatting it once with the idl
// package's canonical formatter so GetInterfaceDescription never
// reformats on every call. Calls whose method belongs to iface are
// dispatched to handler.
func (r *Registry) Register(iface *idl.Interface, handler MethodHandler) {
	if _, exists := r.interfaces[iface.Name]; !exists {
		r.order = append(r.order, iface.Name)
	}
	r.interfaces[iface.Name] = &registeredInterface{
		iface:   iface,
		text:    idl.Format(iface),
		handler: handler,
	}
}

// Interfaces returns the registered interface names, org.varlink.service
// always first, the rest in registration order — matching GetInfo's
// contract.
func (r *Registry) Interfaces() []string {
	out := make([]string, 0, len(r.order)+1)
	out = append(out, serviceInterfaceName)
	out = append(out, r.order...)
	return out
}

// GetInfo answers org.varlink.service.GetInfo.
func (r *Registry) GetInfo() (vendor, product, version, url string, interfaces []string) {
	return r.vendor, r.product, r.version, r.url, r.Interfaces()
}

// GetInterfaceDescription answers org.varlink.service.GetInterfaceDescription.
func (r *Registry) GetInterfaceDescription(name string) (string, error) {
	if ri, ok := r.interfaces[name]; ok {
		return ri.text, nil
	}
	return "", fmt.Errorf("introspect: unknown interface %q", name)
}

// dispatch resolves a fully qualified method name ("iface.Method") to
// its registered interface and forwards the call to its handler.
func (r *Registry) dispatch(method string, params *wire.Value) (*wire.Value, error) {
	ifaceName, ok := splitMethod(method)
	if !ok {
		return nil, fmt.Errorf("introspect: malformed method name %q", method)
	}
	ri, ok := r.interfaces[ifaceName]
	if !ok {
		return nil, fmt.Errorf("introspect: unknown interface %q", ifaceName)
	}
	return ri.handler(method, params)
}

func splitMethod(method string) (iface string, ok bool) {
	i := lastDot(method)
	if i < 0 {
		return "", false
	}
	return method[:i], true
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

// Serve runs a small dispatch loop over srv, translating
// varlink.ServerEvent.Request events. Methods on org.varlink.service
// are answered directly; everything else is forwarded to the
// interface's registered MethodHandler. It returns nil as soon as
// PollEvent yields no event, whether or not a partial frame is still
// buffered or a request still awaits a reply, and after a ServerUpgrade
// event; a ServerProtocolError event ends it with that event's error.
// Errors from serving a single request are logged, not returned. The
// caller is expected to call it again after feeding more bytes with
// HandleInput.
func (r *Registry) Serve(srv *varlink.Server) error {
	for {
		ev, ok := srv.PollEvent()
		if !ok {
			return nil
		}

		switch ev.Kind {
		case varlink.ServerProtocolError:
			return ev.Err

		case varlink.ServerRequest:
			if err := r.serveOne(srv, ev.Request); err != nil {
				llog.Error("introspect: error serving request", llog.KV{"method": ev.Request.Method, "error": err})
			}

		case varlink.ServerUpgrade:
			return nil
		}
	}
}

func (r *Registry) serveOne(srv *varlink.Server, req wire.Request) error {
	ifaceName, ok := splitMethod(req.Method)
	if !ok {
		return sendMisuseError(srv, req, fmt.Sprintf("malformed method name %q", req.Method))
	}

	var result *wire.Value
	var err error
	if ifaceName == serviceInterfaceName {
		result, err = r.serveSelf(req.Method, req.Parameters)
	} else {
		result, err = r.dispatch(req.Method, req.Parameters)
	}

	if req.OneWay {
		return nil
	}

	if appErr, ok := err.(*ApplicationError); ok {
		return srv.SendReply(wire.Reply{Error: appErr.Name, Parameters: appErr.Params})
	}
	if err != nil {
		return sendMisuseError(srv, req, err.Error())
	}
	return srv.SendReply(wire.Reply{Parameters: result})
}

func sendMisuseError(srv *varlink.Server, req wire.Request, message string) error {
	if req.OneWay {
		return nil
	}
	return srv.SendReply(wire.Reply{
		Error: "org.varlink.service.InvalidParameter",
		Parameters: objectValue(map[string]wire.Value{
			"parameter": stringValue(message),
		}),
	})
}

func (r *Registry) serveSelf(method string, params *wire.Value) (*wire.Value, error) {
	switch method {
	case serviceInterfaceName + ".GetInfo":
		vendor, product, version, url, interfaces := r.GetInfo()
		items := make([]wire.Value, len(interfaces))
		for i, name := range interfaces {
			items[i] = stringValue(name)
		}
		return objectValue(map[string]wire.Value{
			"vendor":     stringValue(vendor),
			"product":    stringValue(product),
			"version":    stringValue(version),
			"url":        stringValue(url),
			"interfaces": {Kind: wire.Array, ArrayVal: items},
		}), nil

	case serviceInterfaceName + ".GetInterfaceDescription":
		name, err := stringField(params, "interface")
		if err != nil {
			return nil, err
		}
		desc, err := r.GetInterfaceDescription(name)
		if err != nil {
			return nil, err
		}
		return objectValue(map[string]wire.Value{
			"description": stringValue(desc),
		}), nil

	default:
		return nil, fmt.Errorf("introspect: unknown method %q", method)
	}
}

func stringField(params *wire.Value, key string) (string, error) {
	if params == nil || params.Kind != wire.Object {
		return "", fmt.Errorf("introspect: missing parameters object")
	}
	for _, p := range params.ObjectVal {
		if p.Key == key {
			if p.Value.Kind != wire.String {
				return "", fmt.Errorf("introspect: %q is not a string", key)
			}
			return p.Value.StringVal, nil
		}
	}
	return "", fmt.Errorf("introspect: missing field %q", key)
}

func stringValue(s string) wire.Value { return wire.Value{Kind: wire.String, StringVal: s} }

func objectValue(m map[string]wire.Value) *wire.Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]wire.Pair, len(keys))
	for i, k := range keys {
		pairs[i] = wire.Pair{Key: k, Value: m[k]}
	}
	v := wire.ObjectFrom(pairs...)
	return &v
}
