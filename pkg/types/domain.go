package types

// APStatus summarizes one active AP instance for /status.
type APStatus struct {
	// SSID the instance beacons.
	// example: roam_ft_a1b2c_suffix
	SSID string `json:"ssid" example:"roam_ft_a1b2c_suffix"`
	// Wireless interface bound to the daemon.
	// example: managed0
	Interface string `json:"interface" example:"managed0"`
	// Lifecycle state of the slot.
	// example: active
	State string `json:"state" example:"active"`
	// Operating channel.
	// example: 48
	Channel int `json:"channel,omitempty" example:"48"`
	// Process ID of the AP daemon.
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
}

// StationStatus summarizes the active station association.
type StationStatus struct {
	SSID      string `json:"ssid"`
	Interface string `json:"interface"`
	// Association kind: ibss, managed or external.
	// example: managed
	Kind string `json:"kind" example:"managed"`
}

// LocalServerStatus summarizes one local DHCP server.
type LocalServerStatus struct {
	// Position in the active list; re-indexed on release.
	// example: 0
	Index int `json:"index" example:"0"`
	// Subnet in CIDR form.
	// example: 192.168.0.0/24
	Subnet string `json:"subnet" example:"192.168.0.0/24"`
	// Router address on the subnet.
	// example: 192.168.0.254
	Address string `json:"address" example:"192.168.0.254"`
	// Interface the server is bound to.
	// example: managed0
	Interface string `json:"interface" example:"managed0"`
}
