// Command varlink-bridge exposes a single varlink service address as
// a JSON-RPC 2.0 HTTP endpoint.
package main

import (
	"net/http"
	"os"

	"github.com/levenlabs/go-llog"
	"github.com/mediocregopher/lever"

	"github.com/varlink/go/bridgehttp"
	"github.com/varlink/go/transport"
)

func main() {
	l := lever.New("varlink-bridge", nil)
	l.Add(lever.Param{
		Name:        "--listen-addr",
		Description: "address:port to listen for HTTP requests on, or just :port",
		Default:     ":8888",
	})
	l.Add(lever.Param{
		Name:        "--varlink-addr",
		Description: "varlink transport address to forward calls to",
		Default:     "unix:/run/example.sock",
	})
	l.Add(lever.Param{
		Name:        "--log-level",
		Description: "debug, info, warn, error, or fatal",
		Default:     "info",
	})
	l.Parse()

	logLevel, _ := l.ParamStr("--log-level")
	llog.SetLevelFromString(logLevel)

	listenAddr, _ := l.ParamStr("--listen-addr")
	varlinkAddr, _ := l.ParamStr("--varlink-addr")

	addr, err := transport.ParseAddress(varlinkAddr)
	if err != nil {
		llog.Error("could not parse varlink address", llog.KV{"address": varlinkAddr, "error": err})
		os.Exit(1)
	}

	h := bridgehttp.NewHandler(addr)
	llog.Info("bridging", llog.KV{"listen": listenAddr, "varlink": varlinkAddr})
	if err := http.ListenAndServe(listenAddr, h); err != nil {
		llog.Error("server exited", llog.KV{"error": err})
		os.Exit(1)
	}
}
