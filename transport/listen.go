package transport

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/levenlabs/go-srvclient"
)

// Listen returns a listener for a: a unix: or tcp: Address. It
// consults ActivationListeners first, so a systemd-activated socket
// is reused instead of a fresh bind: when activation supplies exactly
// one listener, that listener is returned without comparing its
// address to a. With no activation listeners, or with several, a
// fresh listener is bound for a.
func Listen(ctx context.Context, a Address) (net.Listener, error) {
	activated, err := ActivationListeners()
	if err != nil {
		return nil, fmt.Errorf("transport: reading activation listeners: %w", err)
	}
	if len(activated) == 1 {
		return activated[0], nil
	}

	switch a.Kind {
	case KindUnix:
		if a.Mode != nil {
			os.Remove(a.Path)
		}
		l, err := (&net.ListenConfig{}).Listen(ctx, "unix", a.Path)
		if err != nil {
			return nil, fmt.Errorf("transport: listen %s: %w", a, err)
		}
		if a.Mode != nil {
			if err := os.Chmod(a.Path, os.FileMode(*a.Mode)); err != nil {
				l.Close()
				return nil, fmt.Errorf("transport: chmod %s: %w", a.Path, err)
			}
		}
		return l, nil

	case KindUnixAbstract:
		l, err := (&net.ListenConfig{}).Listen(ctx, "unix", "@"+a.Path)
		if err != nil {
			return nil, fmt.Errorf("transport: listen %s: %w", a, err)
		}
		return l, nil

	case KindTCP:
		l, err := (&net.ListenConfig{}).Listen(ctx, "tcp", net.JoinHostPort(a.Host, a.Port))
		if err != nil {
			return nil, fmt.Errorf("transport: listen %s: %w", a, err)
		}
		return l, nil

	default:
		return nil, fmt.Errorf("transport: %s addresses cannot be listened on", a.Kind)
	}
}

// Dial opens a connection to a. For unix:/tcp: addresses this is an
// ordinary net.Conn; for exec:/bridge: addresses it starts the
// subprocess described in exec.go and returns its stdio pair.
func Dial(ctx context.Context, a Address) (ReadWriteCloser, error) {
	switch a.Kind {
	case KindUnix:
		var d net.Dialer
		return d.DialContext(ctx, "unix", a.Path)

	case KindUnixAbstract:
		var d net.Dialer
		return d.DialContext(ctx, "unix", "@"+a.Path)

	case KindTCP:
		var d net.Dialer
		return d.DialContext(ctx, "tcp", resolveTCPHost(a))

	case KindExec, KindBridge:
		return dialProcess(ctx, a)

	default:
		return nil, fmt.Errorf("transport: %s addresses cannot be dialed", a.Kind)
	}
}

// resolveTCPHost tries an SRV lookup on a's host:port before falling
// back to it verbatim, the same DNS-SRV-with-fallback behavior a
// gateway uses to find a backend that publishes SRV records for
// itself. A lookup failure (most hosts have no SRV record at all) is
// not an error; it just means dial the address as given.
func resolveTCPHost(a Address) string {
	hostPort := net.JoinHostPort(a.Host, a.Port)
	if resolved, err := srvclient.SRV(hostPort); err == nil {
		return resolved
	}
	return hostPort
}

// ReadWriteCloser is the connection type Dial returns: a net.Conn for
// socket transports, a process-backed pipe pair for exec:/bridge:.
type ReadWriteCloser interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}
