// Package hostapd builds capability-negotiated AP daemon configurations
// and renders them to the key=value parameter list the daemon consumes.
package hostapd

import (
	"fmt"
	"strconv"
)

// Mode selects the 802.11 operating mode.
type Mode string

const (
	Mode80211a      Mode = "a"
	Mode80211b      Mode = "b"
	Mode80211g      Mode = "g"
	Mode80211nMixed Mode = "n-mixed"
	Mode80211nPure  Mode = "n-only"
)

// HTCap is a bitmask of HT capabilities (ht_capab=).
type HTCap int

const (
	HTCapHT20 HTCap = 1 << iota // empty caps string means HT20
	HTCapHT40                   // "[HT40+]", driver picks the secondary side
	HTCapHT40Minus              // "[HT40-]"
	HTCapHT40Plus               // "[HT40+]"
	HTCapSGI20                  // "[SHORT-GI-20]"
	HTCapSGI40                  // "[SHORT-GI-40]"
)

// KV is one rendered configuration parameter. The daemon cares about
// ordering (bss sections are positional), so the rendered form is a list,
// not a map.
type KV struct {
	Key   string
	Value string
}

// Params is the ordered parameter list for one AP daemon instance.
type Params []KV

// Get returns the last value set for key, or "" when absent.
func (p Params) Get(key string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Key == key {
			return p[i].Value
		}
	}
	return ""
}

// Config describes one AP to bring up.
type Config struct {
	SSID           string // empty = derive from the session prefix
	SSIDSuffix     string
	Mode           Mode
	Channel        int
	HTCaps         HTCap
	Hidden         bool
	BSSID          string
	BeaconInterval int
	Security       SecurityConfig
}

// Option mutates a Config under construction.
type Option func(*Config)

// SSID sets a fixed SSID instead of a derived one.
func SSID(ssid string) Option { return func(c *Config) { c.SSID = ssid } }

// SSIDSuffix appends a caller suffix to the derived SSID.
func SSIDSuffix(suffix string) Option { return func(c *Config) { c.SSIDSuffix = suffix } }

// ModeOpt sets the 802.11 operating mode.
func ModeOpt(m Mode) Option { return func(c *Config) { c.Mode = m } }

// Channel sets the operating channel.
func Channel(ch int) Option { return func(c *Config) { c.Channel = ch } }

// HTCaps ORs HT capabilities into the config.
func HTCaps(caps ...HTCap) Option {
	return func(c *Config) {
		for _, hc := range caps {
			c.HTCaps |= hc
		}
	}
}

// Hidden marks the network as hidden (broadcast SSID suppressed).
func Hidden() Option { return func(c *Config) { c.Hidden = true } }

// BSSID pins the BSSID.
func BSSID(bssid string) Option { return func(c *Config) { c.BSSID = bssid } }

// BeaconInterval sets beacon_int in 1.024ms units, 15..65535.
func BeaconInterval(bi int) Option { return func(c *Config) { c.BeaconInterval = bi } }

// Security sets the security configuration. Default is open.
func Security(s SecurityConfig) Option { return func(c *Config) { c.Security = s } }

// NewConfig builds and validates a Config.
func NewConfig(opts ...Option) (*Config, error) {
	conf := &Config{
		Mode:     Mode80211g,
		Channel:  6,
		Security: &OpenConfig{},
	}
	for _, op := range opts {
		op(conf)
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) is80211n() bool {
	return c.Mode == Mode80211nMixed || c.Mode == Mode80211nPure
}

// Frequency returns the operating frequency in MHz for the configured
// channel.
func (c *Config) Frequency() int {
	return FrequencyForChannel(c.Channel)
}

func (c *Config) hwMode() (string, error) {
	switch c.Mode {
	case Mode80211a, Mode80211b, Mode80211g:
		return string(c.Mode), nil
	case Mode80211nMixed, Mode80211nPure:
		// 802.11n uses the underlying band's hw_mode.
		if c.Frequency() > 5000 {
			return "a", nil
		}
		return "g", nil
	}
	return "", fmt.Errorf("invalid mode %q", c.Mode)
}

func (c *Config) htCapsString() string {
	var s string
	if c.HTCaps&(HTCapHT40|HTCapHT40Plus) != 0 {
		s += "[HT40+]"
	} else if c.HTCaps&HTCapHT40Minus != 0 {
		s += "[HT40-]"
	}
	if c.HTCaps&HTCapSGI20 != 0 {
		s += "[SHORT-GI-20]"
	}
	if c.HTCaps&HTCapSGI40 != 0 {
		s += "[SHORT-GI-40]"
	}
	return s
}

func (c *Config) validate() error {
	if len(c.SSID) > 32 {
		return fmt.Errorf("SSID %q longer than 32 bytes", c.SSID)
	}
	if c.Mode == "" {
		return fmt.Errorf("no mode set")
	}
	if c.HTCaps != 0 && !c.is80211n() {
		return fmt.Errorf("HT capabilities not supported by mode %s", c.Mode)
	}
	if FrequencyForChannel(c.Channel) == 0 {
		return fmt.Errorf("invalid channel %d", c.Channel)
	}
	if c.BSSID != "" && len(c.BSSID) != 17 {
		return fmt.Errorf("invalid BSSID %q", c.BSSID)
	}
	if c.BeaconInterval != 0 && (c.BeaconInterval < 15 || c.BeaconInterval > 65535) {
		return fmt.Errorf("invalid beacon interval %d", c.BeaconInterval)
	}
	if c.Security == nil {
		return fmt.Errorf("no security config set")
	}
	return nil
}

// Render produces the ordered parameter list for the daemon, injecting the
// bound interface, the final SSID, and the control socket path.
func (c *Config) Render(iface, ctrlPath, ssid string) (Params, error) {
	var p Params
	add := func(k, v string) { p = append(p, KV{k, v}) }

	add("logger_syslog", "-1")
	add("logger_syslog_level", "0")
	add("driver", "nl80211")
	add("ctrl_interface", ctrlPath)
	add("ssid", ssid)
	add("interface", iface)
	add("channel", strconv.Itoa(c.Channel))

	hwMode, err := c.hwMode()
	if err != nil {
		return nil, err
	}
	add("hw_mode", hwMode)

	if c.is80211n() {
		add("ieee80211n", "1")
		add("ht_capab", c.htCapsString())
		if c.Mode == Mode80211nPure {
			add("require_ht", "1")
		}
		add("wmm_enabled", "1")
	}
	if c.Hidden {
		add("ignore_broadcast_ssid", "1")
	}
	if c.BeaconInterval != 0 {
		add("beacon_int", strconv.Itoa(c.BeaconInterval))
	}
	if c.BSSID != "" {
		add("bssid", c.BSSID)
	}

	sec, err := c.Security.HostapdConfig()
	if err != nil {
		return nil, err
	}
	p = append(p, sec...)

	return p, nil
}
