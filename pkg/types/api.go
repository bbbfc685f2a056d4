package types

// ConfigureRequest asks the daemon to bring up an AP.
type ConfigureRequest struct {
	// Operating mode: a, b, g, n-mixed or n-only.
	// example: n-mixed
	Mode string `json:"mode,omitempty" example:"n-mixed"`
	// Operating channel.
	// example: 48
	Channel int `json:"channel,omitempty" example:"48"`
	// Fixed SSID; empty derives one from the session prefix.
	SSID string `json:"ssid,omitempty"`
	// Suffix appended to a derived SSID.
	SSIDSuffix string `json:"ssid_suffix,omitempty"`
	// Suppress SSID broadcast.
	Hidden bool `json:"hidden,omitempty"`
	// WPA passphrase; empty means an open network.
	Passphrase string `json:"passphrase,omitempty"`
	// Allow this AP to coexist with already-configured instances.
	MultiInterface bool `json:"multi_interface,omitempty"`
}

// ConfigureResponse is returned by POST /aps.
type ConfigureResponse struct {
	SSID      string `json:"ssid"`
	Interface string `json:"interface"`
	// Index of the new instance in the active list.
	Index int `json:"index"`
}

// ConnectManagedRequest asks for a managed client against an active AP.
type ConnectManagedRequest struct {
	// Index of the target AP instance.
	APIndex int `json:"ap_index"`
}

// DeauthRequest forces a client deauthentication.
type DeauthRequest struct {
	// MAC of the client to deauthenticate.
	// example: 00:11:22:33:44:55
	ClientMAC string `json:"client_mac" example:"00:11:22:33:44:55"`
}

// FrameRequest asks for a management frame injection run.
type FrameRequest struct {
	Interface  string `json:"interface"`
	FrameType  string `json:"frame_type"`
	Channel    int    `json:"channel"`
	SSIDPrefix string `json:"ssid_prefix,omitempty"`
	NumBSS     int    `json:"num_bss,omitempty"`
	FrameCount int    `json:"frame_count,omitempty"`
	DelayMS    int    `json:"delay_ms,omitempty"`
}

// FrameResponse carries the detached sender's pid.
type FrameResponse struct {
	PID int `json:"pid"`
}

// SSIDResponse is returned by GET /ssid.
type SSIDResponse struct {
	SSID string `json:"ssid"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	APs          []APStatus          `json:"aps"`
	Stations     []StationStatus     `json:"stations"`
	LocalServers []LocalServerStatus `json:"local_servers"`
	// Session teardown counter; never decremented.
	TotalAPTeardowns int `json:"total_ap_teardowns"`
	// Uptime of the daemon in seconds.
	UptimeSeconds int64 `json:"uptime_seconds"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: AP instance not configured
	Error string `json:"error" example:"AP instance not configured"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
