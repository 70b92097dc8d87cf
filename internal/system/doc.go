// Package system provides the host capabilities the device agent depends on:
// the network link, the GPIO reset line and the device restart.
//
// Each capability is a small type that satisfies an interface declared by
// its consumer (connectivity, router, ota), so tests can substitute fakes.
package system
