package netblock

import "testing"

func TestFromAddr(t *testing.T) {
	nb, err := FromAddr("192.168.0.254", 24)
	if err != nil {
		t.Fatalf("FromAddr: %v", err)
	}
	if got := nb.CIDR(); got != "192.168.0.254/24" {
		t.Fatalf("CIDR = %q", got)
	}
	if got := nb.Subnet().String(); got != "192.168.0.0" {
		t.Fatalf("Subnet = %q", got)
	}
	if got := nb.SubnetCIDR(); got != "192.168.0.0/24" {
		t.Fatalf("SubnetCIDR = %q", got)
	}
	if got := nb.Broadcast().String(); got != "192.168.0.255" {
		t.Fatalf("Broadcast = %q", got)
	}
}

func TestFromAddrErrors(t *testing.T) {
	if _, err := FromAddr("not-an-ip", 24); err == nil {
		t.Fatalf("expected error for bad address")
	}
	if _, err := FromAddr("fe80::1", 24); err == nil {
		t.Fatalf("expected error for IPv6 address")
	}
	if _, err := FromAddr("10.0.0.1", 33); err == nil {
		t.Fatalf("expected error for bad prefix length")
	}
}

func TestAddrInBlock(t *testing.T) {
	nb, err := FromAddr("192.168.5.254", 24)
	if err != nil {
		t.Fatalf("FromAddr: %v", err)
	}
	cases := []struct {
		offset int
		want   string
	}{
		{1, "192.168.5.1"},
		{128, "192.168.5.128"},
		{253, "192.168.5.253"},
		{254, "192.168.5.254"},
	}
	for _, c := range cases {
		if got := nb.AddrInBlock(c.offset).String(); got != c.want {
			t.Fatalf("AddrInBlock(%d) = %q, want %q", c.offset, got, c.want)
		}
	}
}

func TestNarrowerPrefix(t *testing.T) {
	nb, err := FromAddr("10.1.2.200", 28)
	if err != nil {
		t.Fatalf("FromAddr: %v", err)
	}
	if got := nb.Subnet().String(); got != "10.1.2.192" {
		t.Fatalf("Subnet = %q", got)
	}
	if got := nb.Broadcast().String(); got != "10.1.2.207" {
		t.Fatalf("Broadcast = %q", got)
	}
}
