// Command varlink-idl formats and checks .varlink interface files.
package main

import (
	"fmt"
	"os"

	"github.com/levenlabs/go-llog"
	"github.com/mediocregopher/lever"

	"github.com/varlink/go/idl"
)

func main() {
	l := lever.New("varlink-idl", nil)
	l.Add(lever.Param{
		Name:        "--log-level",
		Description: "debug, info, warn, error, or fatal",
		Default:     "info",
	})
	l.Add(lever.Param{
		Name:        "--mode",
		Description: "fmt (rewrite the file canonically) or check (report syntax errors)",
		Default:     "check",
	})
	l.Parse()

	logLevel, _ := l.ParamStr("--log-level")
	llog.SetLevelFromString(logLevel)
	mode, _ := l.ParamStr("--mode")

	paths := l.ParamRest()
	if len(paths) == 0 {
		llog.Error("expected at least one .varlink file argument", llog.KV{})
		os.Exit(1)
	}

	status := 0
	for _, path := range paths {
		if err := run(mode, path); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			status = 1
		}
	}
	os.Exit(status)
}

func run(mode, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	iface, err := idl.Parse(string(src))
	if err != nil {
		if serr, ok := err.(*idl.SyntaxError); ok {
			return fmt.Errorf("%s:%d: %s", path, serr.Offset, serr.Message)
		}
		return fmt.Errorf("%s: %w", path, err)
	}

	switch mode {
	case "check":
		llog.Info("OK", llog.KV{"path": path, "interface": iface.Name})
		return nil

	case "fmt":
		formatted := idl.Format(iface)
		if err := os.WriteFile(path, []byte(formatted), 0o644); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil

	default:
		return fmt.Errorf("unrecognized --mode %q", mode)
	}
}
