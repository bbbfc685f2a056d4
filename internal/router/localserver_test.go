package router_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"wifirouterd/internal/hostapd"
	"wifirouterd/internal/router"
)

func TestLocalServerAddressing(t *testing.T) {
	if got := router.LocalServerAddress(0); got != "192.168.0.254" {
		t.Fatalf("LocalServerAddress(0) = %q", got)
	}
	if got := router.LocalServerAddress(5); got != "192.168.5.254" {
		t.Fatalf("LocalServerAddress(5) = %q", got)
	}
	if got := router.LocalPeerAddress(0); got != "192.168.0.253" {
		t.Fatalf("LocalPeerAddress(0) = %q", got)
	}
}

func TestFirstLocalServerSubnet(t *testing.T) {
	host := &fakeHost{}
	r := newTestRouter(t, host)

	if _, err := r.Configure(context.Background(), apConfig(t), false); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	ip, err := r.WifiIP(0)
	if err != nil {
		t.Fatalf("WifiIP: %v", err)
	}
	if ip != "192.168.0.254" {
		t.Fatalf("router address = %q", ip)
	}
	subnet, err := r.WifiIPSubnet(0)
	if err != nil {
		t.Fatalf("WifiIPSubnet: %v", err)
	}
	if subnet != "192.168.0.0/24" {
		t.Fatalf("subnet = %q", subnet)
	}
	if host.indexOf("ip addr add 192.168.0.254/24 broadcast 192.168.0.255 dev managed0") < 0 {
		t.Fatalf("address not assigned: %v", host.commands)
	}
}

func TestDHCPServerConfig(t *testing.T) {
	host := &fakeHost{}
	r := newTestRouter(t, host)

	if _, err := r.Configure(context.Background(), apConfig(t), false); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	idx := host.indexOf("cat <<EOF >/tmp/dnsmasq-test-managed0.conf")
	if idx < 0 {
		t.Fatalf("DHCP config not written: %v", host.commands)
	}
	conf := host.commands[idx]
	for _, want := range []string{
		"port=0",
		"bind-interfaces",
		"dhcp-range=192.168.0.1,192.168.0.128",
		"interface=managed0",
		"dhcp-leasefile=/tmp/dnsmasq-test-managed0.leases",
	} {
		if !strings.Contains(conf, want) {
			t.Fatalf("DHCP config missing %q:\n%s", want, conf)
		}
	}
	if host.indexOf("dnsmasq --conf-file=/tmp/dnsmasq-test-managed0.conf") < 0 {
		t.Fatalf("DHCP server not started")
	}
}

func TestSecondLocalServerSubnet(t *testing.T) {
	host := &fakeHost{}
	r := newTestRouter(t, host)
	ctx := context.Background()

	if _, err := r.Configure(ctx, apConfig(t), false); err != nil {
		t.Fatalf("Configure first: %v", err)
	}
	if _, err := r.Configure(ctx, apConfig(t, hostapd.ModeOpt(hostapd.Mode80211a), hostapd.Channel(44)), true); err != nil {
		t.Fatalf("Configure second: %v", err)
	}
	ip, err := r.WifiIP(1)
	if err != nil {
		t.Fatalf("WifiIP(1): %v", err)
	}
	if ip != "192.168.1.254" {
		t.Fatalf("second server address = %q", ip)
	}
}

func TestLocalServerReindexAfterRelease(t *testing.T) {
	host := &fakeHost{}
	r := newTestRouter(t, host)
	ctx := context.Background()

	if _, err := r.Configure(ctx, apConfig(t), false); err != nil {
		t.Fatalf("Configure first: %v", err)
	}
	if _, err := r.Configure(ctx, apConfig(t, hostapd.ModeOpt(hostapd.Mode80211a), hostapd.Channel(44)), true); err != nil {
		t.Fatalf("Configure second: %v", err)
	}
	if err := r.DeconfigAP(ctx, 0, false); err != nil {
		t.Fatalf("DeconfigAP: %v", err)
	}
	if r.LocalServerCount() != 1 {
		t.Fatalf("server count after release = %d", r.LocalServerCount())
	}
	// Indices are positions in the active list, so the next allocation
	// reuses the freed subnet slot.
	srv, err := r.StartLocalServer(ctx, "managed0")
	if err != nil {
		t.Fatalf("StartLocalServer: %v", err)
	}
	if srv.Netblock.Addr.String() != "192.168.1.254" {
		t.Fatalf("reallocated subnet address = %s", srv.Netblock.Addr)
	}
}

func TestStopLocalServerUntracks(t *testing.T) {
	host := &fakeHost{}
	r := newTestRouter(t, host)
	ctx := context.Background()

	first, err := r.StartLocalServer(ctx, "managed0")
	if err != nil {
		t.Fatalf("StartLocalServer first: %v", err)
	}
	if _, err := r.StartLocalServer(ctx, "managed1"); err != nil {
		t.Fatalf("StartLocalServer second: %v", err)
	}

	r.StopLocalServer(ctx, first)
	if r.LocalServerCount() != 1 {
		t.Fatalf("server count after stop = %d", r.LocalServerCount())
	}
	// The survivor moves down to position 0.
	ip, err := r.WifiIP(0)
	if err != nil {
		t.Fatalf("WifiIP: %v", err)
	}
	if ip != "192.168.1.254" {
		t.Fatalf("surviving server address = %q", ip)
	}

	// Stopping an already-untracked server must not disturb the list.
	r.StopLocalServer(ctx, first)
	if r.LocalServerCount() != 1 {
		t.Fatalf("repeated stop changed the count: %d", r.LocalServerCount())
	}
}

func TestLocalServerExhaustion(t *testing.T) {
	host := &fakeHost{}
	r := newTestRouter(t, host)
	ctx := context.Background()

	for i := 0; i < 256; i++ {
		if _, err := r.StartLocalServer(ctx, fmt.Sprintf("veth%d", i)); err != nil {
			t.Fatalf("StartLocalServer %d: %v", i, err)
		}
	}
	if r.LocalServerCount() != 256 {
		t.Fatalf("server count = %d", r.LocalServerCount())
	}
	_, err := r.StartLocalServer(ctx, "veth256")
	if !router.IsResourceExhausted(err) {
		t.Fatalf("expected resource-exhausted error, got %v", err)
	}
	if r.LocalServerCount() != 256 {
		t.Fatalf("failed allocation changed the pool: %d", r.LocalServerCount())
	}
}

func TestWifiIPErrors(t *testing.T) {
	host := &fakeHost{}
	r := newTestRouter(t, host)
	if _, err := r.WifiIP(0); !router.IsNotConfigured(err) {
		t.Fatalf("expected not-configured error, got %v", err)
	}
	if _, err := r.WifiIPSubnet(3); !router.IsNotConfigured(err) {
		t.Fatalf("expected not-configured error, got %v", err)
	}
}
