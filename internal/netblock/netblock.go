// Package netblock provides IPv4 subnet arithmetic for local address
// allocation on router interfaces.
package netblock

import (
	"fmt"
	"net"
)

// Netblock describes one IPv4 address inside a prefix, plus the derived
// subnet and broadcast addresses.
type Netblock struct {
	Addr      net.IP
	PrefixLen int
}

// FromAddr parses an address like "192.168.0.254" with the given prefix
// length.
func FromAddr(addr string, prefixLen int) (Netblock, error) {
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() == nil {
		return Netblock{}, fmt.Errorf("invalid IPv4 address %q", addr)
	}
	if prefixLen < 0 || prefixLen > 32 {
		return Netblock{}, fmt.Errorf("invalid prefix length %d", prefixLen)
	}
	return Netblock{Addr: ip.To4(), PrefixLen: prefixLen}, nil
}

func (n Netblock) mask() net.IPMask {
	return net.CIDRMask(n.PrefixLen, 32)
}

// Subnet returns the network address of the block.
func (n Netblock) Subnet() net.IP {
	return n.Addr.Mask(n.mask())
}

// Broadcast returns the broadcast address of the block.
func (n Netblock) Broadcast() net.IP {
	sub := n.Subnet()
	mask := n.mask()
	out := make(net.IP, 4)
	for i := 0; i < 4; i++ {
		out[i] = sub[i] | ^mask[i]
	}
	return out
}

// AddrInBlock returns the address with the given host offset inside the
// subnet, e.g. offset 1 of 192.168.0.0/24 is 192.168.0.1.
func (n Netblock) AddrInBlock(offset int) net.IP {
	sub := n.Subnet()
	out := make(net.IP, 4)
	copy(out, sub)
	out[3] = sub[3] | byte(offset)
	return out
}

// CIDR renders the address with its prefix, e.g. "192.168.0.254/24".
func (n Netblock) CIDR() string {
	return fmt.Sprintf("%s/%d", n.Addr, n.PrefixLen)
}

// SubnetCIDR renders the network address with its prefix.
func (n Netblock) SubnetCIDR() string {
	return fmt.Sprintf("%s/%d", n.Subnet(), n.PrefixLen)
}

func (n Netblock) String() string { return n.CIDR() }
