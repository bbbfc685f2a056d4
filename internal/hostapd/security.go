package hostapd

import "fmt"

// SecurityConfig contributes security parameters to the daemon config.
type SecurityConfig interface {
	// Class names the security flavor, e.g. for perf descriptions.
	Class() string
	// HostapdConfig returns the parameters this flavor adds.
	HostapdConfig() (Params, error)
}

// OpenConfig is an open (unsecured) network.
type OpenConfig struct{}

func (*OpenConfig) Class() string { return "open" }

func (*OpenConfig) HostapdConfig() (Params, error) { return nil, nil }

// WPAMode selects the WPA generation advertised by a PSK network.
type WPAMode int

const (
	WPAModePure  WPAMode = 1
	WPAMode2Pure WPAMode = 2
	WPAModeMixed WPAMode = 3
)

// WPAPSKConfig is a WPA/WPA2 pre-shared-key network.
type WPAPSKConfig struct {
	Passphrase string
	Mode       WPAMode
	Ciphers    []string // pairwise ciphers, e.g. "CCMP", "TKIP"
}

func (*WPAPSKConfig) Class() string { return "wpa" }

func (c *WPAPSKConfig) HostapdConfig() (Params, error) {
	if len(c.Passphrase) < 8 || len(c.Passphrase) > 63 {
		return nil, fmt.Errorf("invalid WPA passphrase length %d", len(c.Passphrase))
	}
	mode := c.Mode
	if mode == 0 {
		mode = WPAModeMixed
	}
	ciphers := "CCMP"
	for i, ci := range c.Ciphers {
		if i == 0 {
			ciphers = ci
		} else {
			ciphers += " " + ci
		}
	}
	p := Params{
		{"wpa", fmt.Sprintf("%d", mode)},
		{"wpa_key_mgmt", "WPA-PSK"},
		{"wpa_passphrase", c.Passphrase},
		{"wpa_pairwise", ciphers},
	}
	if mode != WPAModePure {
		p = append(p, KV{"rsn_pairwise", ciphers})
	}
	return p, nil
}
