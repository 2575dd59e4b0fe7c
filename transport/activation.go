package transport

import (
	"net"

	"github.com/coreos/go-systemd/v22/activation"
)

// ActivationListeners returns the listeners systemd handed this
// process via LISTEN_FDS/LISTEN_PID, or nil, nil when the
// environment does not describe activation for this process. It
// unsets the activation environment variables after reading them, so
// a second call (or a forked child) never reuses the same descriptors.
func ActivationListeners() ([]net.Listener, error) {
	return activation.Listeners()
}
