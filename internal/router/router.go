// Package router manages the lifecycle of AP daemons, client-station
// associations, and per-interface local DHCP servers on one router host.
//
// Files by concern:
//
//   - router.go: Router type, constructor, configure/deconfig sequencing,
//     accessors.
//   - ap.go: AP daemon start/poll/stop and log-grep probes.
//   - station.go: IBSS and managed client associations.
//   - localserver.go: subnet pool and DHCP server lifecycle.
//   - ifaces.go: interface allocator collaborator.
//   - errors.go: error taxonomy and Is* helpers.
//
// All operations are synchronous; the Router holds no locks and must not
// be driven from multiple goroutines on the same session.
package router

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wifirouterd/internal/hostapd"
	"wifirouterd/internal/remote"
)

const (
	// Session names commonly start with this uninteresting prefix; it is
	// stripped so the derived SSIDs keep more unique bytes.
	knownSessionPrefix = "network_WiFi"

	suffixLetters = "abcdefghijklmnopqrstuvwxyz0123456789"
	ssidMaxLen    = 32

	defaultPollInterval   = 500 * time.Millisecond
	defaultStartupTimeout = 10 * time.Second
	defaultLinkUpTimeout  = 60 * time.Second
	defaultKillWait       = 30 * time.Second

	apConfFilePattern = "/tmp/hostapd-test-%s.conf"
	apLogFilePattern  = "/tmp/hostapd-test-%s.log"
	apPIDFilePattern  = "/tmp/hostapd-test-%s.pid"
	apCtrlFilePattern = "/tmp/hostapd-test-%s.ctrl"

	staConfFilePattern = "/tmp/wpa-supplicant-test-%s.conf"
	staLogFilePattern  = "/tmp/wpa-supplicant-test-%s.log"
	staPIDFilePattern  = "/tmp/wpa-supplicant-test-%s.pid"

	mgmtFrameSenderLogFile = "/tmp/send_management_frame-test.log"

	cmdHostapd       = "/usr/sbin/hostapd"
	cmdHostapdCLI    = "/usr/sbin/hostapd_cli"
	cmdWPASupplicant = "/usr/sbin/wpa_supplicant"
	cmdSendFrame     = "/usr/bin/send_management_frame"
)

// Config carries the collaborators and tunables for one router session.
// Zero durations mean package defaults.
type Config struct {
	Executor remote.Executor
	Ifaces   InterfaceAllocator
	// SessionName seeds the derived SSID prefix.
	SessionName string
	// ResultsDir is where collected daemon logs land.
	ResultsDir string
	Logger     zerolog.Logger

	PollInterval   time.Duration
	StartupTimeout time.Duration
	// LinkUpTimeout bounds the managed-client link wait. 0 uses the
	// default; a negative value restores the historical unbounded wait.
	LinkUpTimeout time.Duration
	KillWait      time.Duration

	// RandSeed fixes the SSID salt for reproducible sessions; 0 seeds from
	// the clock.
	RandSeed int64
}

// Router owns the AP, station, and local-server collections for one
// router session and sequences their lifecycles.
type Router struct {
	host   remote.Executor
	ifaces InterfaceAllocator
	log    zerolog.Logger

	ssidPrefix string
	resultsDir string

	pollInterval   time.Duration
	startupTimeout time.Duration
	linkUpTimeout  time.Duration
	killWait       time.Duration

	rnd *rand.Rand

	apInstances      []*APInstance
	stationInstances []*StationInstance
	localServers     []*LocalServer

	// totalAPTeardowns only ever grows; it disambiguates collected log
	// names across repeated configure/deconfig cycles.
	totalAPTeardowns int
}

// New builds a Router and resets the host: stray AP daemons and DHCP
// servers from a previous session are killed and the regulatory domain is
// pinned.
func New(ctx context.Context, cfg Config) (*Router, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("no executor configured")
	}
	if cfg.Ifaces == nil {
		return nil, fmt.Errorf("no interface allocator configured")
	}
	r := &Router{
		host:           cfg.Executor,
		ifaces:         cfg.Ifaces,
		log:            cfg.Logger,
		ssidPrefix:     buildSSIDPrefix(cfg.SessionName),
		resultsDir:     cfg.ResultsDir,
		pollInterval:   cfg.PollInterval,
		startupTimeout: cfg.StartupTimeout,
		linkUpTimeout:  cfg.LinkUpTimeout,
		killWait:       cfg.KillWait,
	}
	if r.pollInterval == 0 {
		r.pollInterval = defaultPollInterval
	}
	if r.startupTimeout == 0 {
		r.startupTimeout = defaultStartupTimeout
	}
	if r.linkUpTimeout == 0 {
		r.linkUpTimeout = defaultLinkUpTimeout
	}
	if r.killWait == 0 {
		r.killWait = defaultKillWait
	}
	seed := cfg.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r.rnd = rand.New(rand.NewSource(seed))

	r.KillAllAPDaemons(ctx)
	r.stopAllDHCPServers(ctx)
	if _, err := r.host.Run(ctx, "iw reg set US", remote.IgnoreStatus()); err != nil {
		return nil, fmt.Errorf("set regulatory domain: %w", err)
	}
	return r, nil
}

// buildSSIDPrefix derives the per-session SSID prefix from the session
// name.
func buildSSIDPrefix(session string) string {
	prefix := strings.TrimPrefix(session, knownSessionPrefix)
	prefix = strings.TrimLeft(prefix, "_")
	return prefix + "_"
}

// buildSSID appends a random salt and the caller suffix to the session
// prefix, keeping the rightmost bytes when the result exceeds the 32-byte
// SSID limit.
func (r *Router) buildSSID(suffix string) string {
	salt := make([]byte, 5)
	for i := range salt {
		salt[i] = suffixLetters[r.rnd.Intn(len(suffixLetters))]
	}
	ssid := r.ssidPrefix + string(salt) + suffix
	if len(ssid) > ssidMaxLen {
		ssid = ssid[len(ssid)-ssidMaxLen:]
	}
	return ssid
}

// Configure brings up an AP for cfg and a local server on its interface.
// Unless multiInterface is set, anything already configured is torn down
// first: the default policy is one active network per session.
func (r *Router) Configure(ctx context.Context, cfg *hostapd.Config, multiInterface bool) (*APInstance, error) {
	if !multiInterface && (len(r.apInstances) > 0 || len(r.stationInstances) > 0) {
		if err := r.Deconfig(ctx); err != nil {
			return nil, err
		}
	}
	inst, err := r.startAP(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// TX power interacts badly with some lab enclosures if left at the
	// previous session's setting.
	if _, err := r.host.Run(ctx, fmt.Sprintf("iw dev %s set txpower auto", inst.Interface), remote.IgnoreStatus()); err != nil {
		return nil, err
	}
	if _, err := r.StartLocalServer(ctx, inst.Interface); err != nil {
		return nil, err
	}
	r.log.Info().Str("iface", inst.Interface).Str("ssid", inst.SSID).Msg("AP configured")
	return inst, nil
}

// Deconfig tears down everything configured on the session. With nothing
// configured it is a no-op.
func (r *Router) Deconfig(ctx context.Context) error {
	return r.deconfig(ctx, -1, false)
}

// DeconfigAP tears down the AP at index. silent removes the interface
// before killing the daemon so no deauthentication frames reach
// associated clients.
func (r *Router) DeconfigAP(ctx context.Context, index int, silent bool) error {
	if index < 0 || index >= len(r.apInstances) {
		return notConfiguredError{what: fmt.Sprintf("AP instance %d", index)}
	}
	return r.deconfig(ctx, index, silent)
}

// deconfig removes the selected AP instance (index -1 = all, plus any
// station). Per instance the order is fixed: local server first so stale
// routes do not outlive the daemon, then optional silent interface
// removal, then the kill and log collection, then interface release.
func (r *Router) deconfig(ctx context.Context, index int, silent bool) error {
	if len(r.apInstances) == 0 && len(r.stationInstances) == 0 {
		return nil
	}

	var servers []*LocalServer
	if len(r.apInstances) > 0 {
		var instances []*APInstance
		if index >= 0 {
			inst := r.apInstances[index]
			r.apInstances = append(r.apInstances[:index], r.apInstances[index+1:]...)
			instances = []*APInstance{inst}
			for i, server := range r.localServers {
				if server.Interface == inst.Interface {
					servers = []*LocalServer{server}
					r.localServers = append(r.localServers[:i], r.localServers[i+1:]...)
					break
				}
			}
		} else {
			instances = r.apInstances
			r.apInstances = nil
			servers = r.localServers
			r.localServers = nil
		}

		for _, server := range servers {
			r.StopLocalServer(ctx, server)
		}
		for _, inst := range instances {
			r.stopAP(ctx, inst, silent)
			r.totalAPTeardowns++
		}
		servers = nil
	}

	if len(r.stationInstances) > 0 {
		servers = r.localServers
		r.localServers = nil
		inst := r.stationInstances[len(r.stationInstances)-1]
		r.stationInstances = r.stationInstances[:len(r.stationInstances)-1]
		r.leaveStation(ctx, inst)
		for _, server := range servers {
			r.StopLocalServer(ctx, server)
		}
	}
	return nil
}

// Close deconfigures the session and releases the command channel.
func (r *Router) Close(ctx context.Context) error {
	if err := r.Deconfig(ctx); err != nil {
		return err
	}
	return r.host.Close()
}

// HasLocalServer reports whether any local server is configured.
func (r *Router) HasLocalServer() bool {
	return len(r.localServers) > 0
}

// APCount returns the number of active AP instances.
func (r *Router) APCount() int { return len(r.apInstances) }

// StationCount returns the number of active station instances.
func (r *Router) StationCount() int { return len(r.stationInstances) }

// LocalServerCount returns the number of active local servers.
func (r *Router) LocalServerCount() int { return len(r.localServers) }

// TotalAPTeardowns returns the session teardown counter.
func (r *Router) TotalAPTeardowns() int { return r.totalAPTeardowns }

// GetSSID returns the SSID at index. index -1 means "the only one": with
// multiple AP instances present it fails as ambiguous.
func (r *Router) GetSSID(index int) (string, error) {
	if index < 0 {
		if len(r.apInstances) > 1 {
			return "", ambiguousInstanceError{count: len(r.apInstances)}
		}
		index = 0
	}
	if index < len(r.apInstances) {
		return r.apInstances[index].SSID, nil
	}
	if len(r.stationInstances) > 0 {
		return r.stationInstances[0].SSID, nil
	}
	return "", notConfiguredError{what: "SSID: network"}
}

// WifiIP returns the router's IP on the WiFi subnet of local server index.
func (r *Router) WifiIP(index int) (string, error) {
	if index < 0 || index >= len(r.localServers) {
		return "", notConfiguredError{what: "local server address"}
	}
	return r.localServers[index].Netblock.Addr.String(), nil
}

// WifiIPSubnet returns the subnet of local server index in CIDR form.
func (r *Router) WifiIPSubnet(index int) (string, error) {
	if index < 0 || index >= len(r.localServers) {
		return "", notConfiguredError{what: "local server subnet"}
	}
	return r.localServers[index].Netblock.SubnetCIDR(), nil
}

// WifiChannel returns the primary channel of the AP at index.
func (r *Router) WifiChannel(index int) (int, error) {
	inst, err := r.apInstance(index)
	if err != nil {
		return 0, err
	}
	ch, err := strconv.Atoi(inst.Params.Get("channel"))
	if err != nil {
		return 0, fmt.Errorf("bad channel parameter: %w", err)
	}
	return ch, nil
}

// HostapdInterface returns the interface bound to the AP at index.
func (r *Router) HostapdInterface(index int) (string, error) {
	inst, err := r.apInstance(index)
	if err != nil {
		return "", err
	}
	return inst.Interface, nil
}

// HostapdMAC returns the MAC address of the AP interface at index.
func (r *Router) HostapdMAC(ctx context.Context, index int) (string, error) {
	iface, err := r.HostapdInterface(index)
	if err != nil {
		return "", err
	}
	return r.interfaceMAC(ctx, iface)
}

// HostapdPhy returns the phy backing the AP interface at index.
func (r *Router) HostapdPhy(index int) (string, error) {
	iface, err := r.HostapdInterface(index)
	if err != nil {
		return "", err
	}
	return r.ifaces.Phy(iface)
}

func (r *Router) apInstance(index int) (*APInstance, error) {
	if len(r.apInstances) == 0 {
		return nil, notConfiguredError{what: "AP instance"}
	}
	if index < 0 || index >= len(r.apInstances) {
		return nil, notConfiguredError{what: fmt.Sprintf("AP instance %d", index)}
	}
	return r.apInstances[index], nil
}

// interfaceMAC reads an interface's MAC address over the command channel.
func (r *Router) interfaceMAC(ctx context.Context, iface string) (string, error) {
	res, err := r.host.Run(ctx, "cat /sys/class/net/"+iface+"/address")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}
