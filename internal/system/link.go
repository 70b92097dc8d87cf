package system

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
)

// InterfaceLink reports a network interface's state and can ask the host
// to bring it up.
type InterfaceLink struct {
	name      string
	upCommand []string

	// lookup is net.InterfaceByName outside tests.
	lookup func(name string) (*net.Interface, error)
}

// NewInterfaceLink watches the named interface. An empty name means the
// link is always up (e.g. wired hosts managed elsewhere). upCommand, if set,
// is run by Acquire, e.g. ["wpa_cli", "-i", "wlan0", "reconnect"].
func NewInterfaceLink(name string, upCommand []string) *InterfaceLink {
	return &InterfaceLink{
		name:      name,
		upCommand: upCommand,
		lookup:    net.InterfaceByName,
	}
}

// Up reports whether the interface is administratively up and running.
func (l *InterfaceLink) Up() bool {
	if l.name == "" {
		return true
	}
	iface, err := l.lookup(l.name)
	if err != nil {
		return false
	}
	return iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagRunning != 0
}

// Acquire runs the configured up command. It does not wait for the link.
func (l *InterfaceLink) Acquire(ctx context.Context) error {
	if len(l.upCommand) == 0 {
		return nil
	}
	out, err := exec.CommandContext(ctx, l.upCommand[0], l.upCommand[1:]...).CombinedOutput() //nolint:gosec // Command comes from trusted config
	if err != nil {
		return fmt.Errorf("running %s: %w: %s", l.upCommand[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
