package router_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"wifirouterd/internal/remote"
	"wifirouterd/internal/router"
)

func TestJoinIBSS(t *testing.T) {
	host := &fakeHost{}
	r := newTestRouter(t, host)
	ctx := context.Background()

	inst, err := r.JoinIBSS(ctx, apConfig(t))
	if err != nil {
		t.Fatalf("JoinIBSS: %v", err)
	}
	if inst.Kind != router.StationIBSS {
		t.Fatalf("kind = %q", inst.Kind)
	}
	if r.StationCount() != 1 || r.APCount() != 0 {
		t.Fatalf("counts: stations=%d aps=%d", r.StationCount(), r.APCount())
	}
	join := host.indexOf("ibss join " + inst.SSID + " 2437")
	if join < 0 {
		t.Fatalf("join command not issued: %v", host.commands)
	}
	// Ad-hoc networks get a local server too.
	if r.LocalServerCount() != 1 {
		t.Fatalf("no local server for IBSS network")
	}
	got, err := r.GetSSID(-1)
	if err != nil {
		t.Fatalf("GetSSID: %v", err)
	}
	if got != inst.SSID {
		t.Fatalf("GetSSID = %q, want %q", got, inst.SSID)
	}
}

func TestJoinIBSSReplacesAP(t *testing.T) {
	host := &fakeHost{}
	r := newTestRouter(t, host)
	ctx := context.Background()

	if _, err := r.Configure(ctx, apConfig(t), false); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if _, err := r.JoinIBSS(ctx, apConfig(t)); err != nil {
		t.Fatalf("JoinIBSS: %v", err)
	}
	if r.APCount() != 0 || r.StationCount() != 1 {
		t.Fatalf("counts: aps=%d stations=%d", r.APCount(), r.StationCount())
	}
	if r.TotalAPTeardowns() != 1 {
		t.Fatalf("previous AP not torn down")
	}
}

func TestDeconfigIBSS(t *testing.T) {
	host := &fakeHost{}
	r := newTestRouter(t, host)
	ctx := context.Background()

	inst, err := r.JoinIBSS(ctx, apConfig(t))
	if err != nil {
		t.Fatalf("JoinIBSS: %v", err)
	}
	mark := len(host.commands)
	if err := r.Deconfig(ctx); err != nil {
		t.Fatalf("Deconfig: %v", err)
	}
	if r.StationCount() != 0 || r.LocalServerCount() != 0 {
		t.Fatalf("counts after deconfig: stations=%d servers=%d",
			r.StationCount(), r.LocalServerCount())
	}
	leave, down := -1, -1
	for i, cmd := range host.commands[mark:] {
		if strings.Contains(cmd, "iw dev "+inst.Interface+" ibss leave") && leave < 0 {
			leave = i
		}
		if strings.Contains(cmd, "ip link set "+inst.Interface+" down") && down < 0 {
			down = i
		}
	}
	if leave < 0 || down < 0 || leave > down {
		t.Fatalf("IBSS teardown out of order: leave=%d down=%d cmds=%v", leave, down, host.commands[mark:])
	}
}

func TestJoinIBSSLocalServerFailure(t *testing.T) {
	host := &fakeHost{}
	host.fail("dnsmasq --conf-file", errors.New("dnsmasq refused to start"))
	alloc := twoRadioAllocator()
	r := newTestRouterAllocator(t, host, alloc)
	ctx := context.Background()

	if _, err := r.JoinIBSS(ctx, apConfig(t)); err == nil {
		t.Fatalf("expected local server failure to propagate")
	}
	if r.StationCount() != 0 || r.LocalServerCount() != 0 {
		t.Fatalf("failed join left state: stations=%d servers=%d",
			r.StationCount(), r.LocalServerCount())
	}
	if host.indexOf("iw dev managed0 ibss leave") < 0 {
		t.Fatalf("joined network not left on failure: %v", host.commands)
	}
	// The interface must be back in the pool.
	got, err := alloc.Get(ctx, 2437, router.IfaceIBSS)
	if err != nil {
		t.Fatalf("Get after failed join: %v", err)
	}
	if got != "managed0" {
		t.Fatalf("interface not released: got %s", got)
	}
}

func TestConnectManagedLinkTimeoutKillsDaemon(t *testing.T) {
	host := &fakeHost{}
	host.respond("link | grep -q Connected", remote.Result{ExitStatus: 1})
	alloc := twoRadioAllocator()
	r, err := router.New(context.Background(), router.Config{
		Executor:      host,
		Ifaces:        alloc,
		SessionName:   "network_WiFi_RoamSuite",
		ResultsDir:    t.TempDir(),
		Logger:        zerolog.Nop(),
		PollInterval:  time.Millisecond,
		LinkUpTimeout: 10 * time.Millisecond,
		RandSeed:      1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if _, err := r.Configure(ctx, apConfig(t), false); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if _, err := r.ConnectManaged(ctx, 0); err == nil {
		t.Fatalf("expected link wait to time out")
	}
	if r.StationCount() != 0 {
		t.Fatalf("failed station left registered")
	}
	// The started client daemon must not outlive the failed connect.
	if host.count("wpa_supplicant.*managed1") == 0 {
		t.Fatalf("client daemon not killed: %v", host.commands)
	}
	got, err := alloc.Get(ctx, 2437, router.IfaceManaged)
	if err != nil {
		t.Fatalf("Get after failed connect: %v", err)
	}
	if got != "managed1" {
		t.Fatalf("interface not released: got %s", got)
	}
}

func TestConnectManaged(t *testing.T) {
	host := &fakeHost{}
	host.respond("iw dev managed1 link | grep -q Connected", remote.Result{ExitStatus: 0})
	r := newTestRouter(t, host)
	ctx := context.Background()

	if _, err := r.Configure(ctx, apConfig(t), false); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	inst, err := r.ConnectManaged(ctx, 0)
	if err != nil {
		t.Fatalf("ConnectManaged: %v", err)
	}
	if inst.Kind != router.StationManaged || inst.Interface != "managed1" {
		t.Fatalf("station instance: %+v", inst)
	}
	if host.indexOf("wpa_supplicant -dd -t -imanaged1") < 0 {
		t.Fatalf("client daemon not started: %v", host.commands)
	}
	// The peer takes the reserved address on the AP's subnet.
	if host.indexOf("ip addr add 192.168.0.253/24 dev managed1") < 0 {
		t.Fatalf("peer address not assigned")
	}
	if host.indexOf("echo 2 > /proc/sys/net/ipv4/conf/managed1/rp_filter") < 0 {
		t.Fatalf("reverse-path filtering not loosened")
	}
	if host.indexOf("echo 1 > /proc/sys/net/ipv4/conf/managed0/arp_ignore") < 0 {
		t.Fatalf("AP side arp_ignore not set")
	}
}

func TestConnectManagedRequiresAP(t *testing.T) {
	host := &fakeHost{}
	r := newTestRouter(t, host)
	_, err := r.ConnectManaged(context.Background(), 0)
	if !router.IsNotConfigured(err) {
		t.Fatalf("expected not-configured error, got %v", err)
	}
}

func TestConnectManagedRejectsSecondStation(t *testing.T) {
	host := &fakeHost{}
	host.respond("link | grep -q Connected", remote.Result{ExitStatus: 0})
	r := newTestRouter(t, host)
	ctx := context.Background()

	if _, err := r.Configure(ctx, apConfig(t), false); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if _, err := r.ConnectManaged(ctx, 0); err != nil {
		t.Fatalf("ConnectManaged: %v", err)
	}
	if _, err := r.ConnectManaged(ctx, 0); err == nil {
		t.Fatalf("expected error on second station")
	}
}

func TestDeconfigManagedStation(t *testing.T) {
	host := &fakeHost{}
	host.respond("link | grep -q Connected", remote.Result{ExitStatus: 0})
	r := newTestRouter(t, host)
	ctx := context.Background()

	if _, err := r.Configure(ctx, apConfig(t), false); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if _, err := r.ConnectManaged(ctx, 0); err != nil {
		t.Fatalf("ConnectManaged: %v", err)
	}
	mark := len(host.commands)
	if err := r.Deconfig(ctx); err != nil {
		t.Fatalf("Deconfig: %v", err)
	}
	if r.APCount() != 0 || r.StationCount() != 0 || r.LocalServerCount() != 0 {
		t.Fatalf("counts: aps=%d stations=%d servers=%d",
			r.APCount(), r.StationCount(), r.LocalServerCount())
	}
	killed := false
	for _, cmd := range host.commands[mark:] {
		if strings.Contains(cmd, "wpa_supplicant.*managed1") {
			killed = true
		}
	}
	if !killed {
		t.Fatalf("client daemon not killed: %v", host.commands[mark:])
	}
}

func TestPeerMACAddress(t *testing.T) {
	host := &fakeHost{}
	host.respond("link | grep -q Connected", remote.Result{ExitStatus: 0})
	host.respond("cat /sys/class/net/managed1/address",
		remote.Result{Stdout: "02:00:00:00:01:01\n"})
	r := newTestRouter(t, host)
	ctx := context.Background()

	if _, err := r.PeerMACAddress(ctx); !router.IsNotConfigured(err) {
		t.Fatalf("expected not-configured error with no station")
	}

	if _, err := r.Configure(ctx, apConfig(t), false); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if _, err := r.ConnectManaged(ctx, 0); err != nil {
		t.Fatalf("ConnectManaged: %v", err)
	}
	mac, err := r.PeerMACAddress(ctx)
	if err != nil {
		t.Fatalf("PeerMACAddress: %v", err)
	}
	if mac != "02:00:00:00:01:01" {
		t.Fatalf("MAC = %q", mac)
	}
}
