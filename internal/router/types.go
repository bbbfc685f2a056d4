package router

import (
	"wifirouterd/internal/hostapd"
	"wifirouterd/internal/netblock"
)

// State is the lifecycle state of an AP slot.
type State string

const (
	StateUnconfigured State = "unconfigured"
	StateStarting     State = "starting"
	StateActive       State = "active"
	StateTearingDown  State = "tearing_down"
	// StateFailed is terminal; a failed slot is never reused.
	StateFailed State = "failed"
)

// APInstance is one AP daemon process bound to one wireless interface.
// At most one instance exists per interface.
type APInstance struct {
	SSID      string
	Interface string
	Params    hostapd.Params
	ConfFile  string
	LogFile   string
	PIDFile   string
	CtrlFile  string
	PID       int
	State     State
}

// StationKind is the association type of a station instance.
type StationKind string

const (
	StationIBSS     StationKind = "ibss"
	StationManaged  StationKind = "managed"
	StationExternal StationKind = "external"
)

// StationInstance is one client-mode association. At most one exists at a
// time, and AP and station instances are mutually exclusive on the common
// path.
type StationInstance struct {
	SSID      string
	Interface string
	Kind      StationKind
}

// LocalServer is the DHCP daemon plus static addressing for one
// interface's subnet. Index is the position in the active list at
// allocation time; releases re-index the survivors, so it is not a stable
// identifier.
type LocalServer struct {
	Index     int
	Netblock  netblock.Netblock
	Interface string
	ConfFile  string
	LeaseFile string
}
