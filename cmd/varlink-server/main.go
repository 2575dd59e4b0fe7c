// Command varlink-server loads a service config, registers its
// interfaces, and serves connections one goroutine per connection.
package main

import (
	"context"
	"os"

	"github.com/levenlabs/go-llog"
	"github.com/mediocregopher/lever"

	"github.com/varlink/go/config"
	"github.com/varlink/go/idl"
	"github.com/varlink/go/introspect"
	"github.com/varlink/go/transport"
	"github.com/varlink/go/varlink"
	"github.com/varlink/go/wire"
)

func main() {
	l := lever.New("varlink-server", nil)
	l.Add(lever.Param{
		Name:        "--config",
		Description: "path to the service's TOML config file",
		Default:     "service.toml",
	})
	l.Add(lever.Param{
		Name:        "--log-level",
		Description: "debug, info, warn, error, or fatal",
		Default:     "info",
	})
	l.Parse()

	logLevel, _ := l.ParamStr("--log-level")
	llog.SetLevelFromString(logLevel)

	configPath, _ := l.ParamStr("--config")
	cfg, err := config.Load(configPath)
	if err != nil {
		llog.Error("could not load config", llog.KV{"path": configPath, "error": err})
		os.Exit(1)
	}

	addr, err := transport.ParseAddress(cfg.Listen)
	if err != nil {
		llog.Error("could not parse listen address", llog.KV{"listen": cfg.Listen, "error": err})
		os.Exit(1)
	}

	registry := introspect.NewRegistry(cfg.Vendor, cfg.Product, cfg.Version, cfg.URL)
	for _, path := range cfg.Interfaces {
		src, err := os.ReadFile(path)
		if err != nil {
			llog.Error("could not read interface file", llog.KV{"path": path, "error": err})
			os.Exit(1)
		}
		iface, err := idl.Parse(string(src))
		if err != nil {
			llog.Error("could not parse interface file", llog.KV{"path": path, "error": err})
			os.Exit(1)
		}
		registry.Register(iface, unimplementedHandler(iface.Name))
		llog.Info("registered interface", llog.KV{"interface": iface.Name, "path": path})
	}

	ctx := context.Background()
	listener, err := transport.Listen(ctx, addr)
	if err != nil {
		llog.Error("could not listen", llog.KV{"listen": cfg.Listen, "error": err})
		os.Exit(1)
	}
	defer listener.Close()

	llog.Info("listening", llog.KV{"listen": cfg.Listen})
	for {
		conn, err := listener.Accept()
		if err != nil {
			llog.Error("accept failed", llog.KV{"error": err})
			continue
		}
		go serveConn(conn, registry)
	}
}

// serveConn runs the read/handle_input/poll_event/send_reply/
// poll_transmit/write loop for a single connection, exclusively
// owning one varlink.Server for its lifetime.
func serveConn(conn interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Close() error
}, registry *introspect.Registry) {
	defer conn.Close()

	srv := varlink.NewServer()
	buf := make([]byte, 64*1024)
	for {
		if err := registry.Serve(srv); err != nil {
			llog.Warn("connection terminated", llog.KV{"error": err})
			return
		}
		for {
			tx, ok := srv.PollTransmit()
			if !ok {
				break
			}
			if _, err := conn.Write(tx); err != nil {
				llog.Warn("write failed", llog.KV{"error": err})
				return
			}
		}

		n, err := conn.Read(buf)
		if n > 0 {
			if err := srv.HandleInput(buf[:n]); err != nil {
				llog.Warn("handle_input failed", llog.KV{"error": err})
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// unimplementedHandler answers every method on iface with
// org.varlink.service.MethodNotImplemented, the varlink-defined error
// for a registered interface whose methods have no application logic
// wired in yet.
func unimplementedHandler(interfaceName string) introspect.MethodHandler {
	return func(method string, _ *wire.Value) (*wire.Value, error) {
		return nil, &introspect.ApplicationError{Name: "org.varlink.service.MethodNotImplemented"}
	}
}
