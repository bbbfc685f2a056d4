package router

import (
	"context"
	"fmt"
	"time"

	"wifirouterd/internal/hostapd"
	"wifirouterd/internal/remote"
)

// JoinIBSS brings up a station in IBSS mode for cfg and starts a local
// server on its interface. Anything already configured is torn down
// first.
func (r *Router) JoinIBSS(ctx context.Context, cfg *hostapd.Config) (*StationInstance, error) {
	if len(r.stationInstances) > 0 || len(r.apInstances) > 0 {
		if err := r.Deconfig(ctx); err != nil {
			return nil, err
		}
	}
	iface, err := r.ifaces.Get(ctx, cfg.Frequency(), IfaceIBSS)
	if err != nil {
		return nil, err
	}
	ssid := cfg.SSID
	if ssid == "" {
		ssid = r.buildSSID(cfg.SSIDSuffix)
	}

	if _, err := r.host.Run(ctx, "ip link set "+iface+" up"); err != nil {
		r.releaseInterface(ctx, iface)
		return nil, err
	}
	joinCmd := fmt.Sprintf("iw dev %s ibss join %s %d", iface, ssid, cfg.Frequency())
	if _, err := r.host.Run(ctx, joinCmd); err != nil {
		r.releaseInterface(ctx, iface)
		return nil, fmt.Errorf("join IBSS: %w", err)
	}
	// IBSS networks always get a local server.
	if _, err := r.StartLocalServer(ctx, iface); err != nil {
		r.host.Run(ctx, "iw dev "+iface+" ibss leave", remote.IgnoreStatus())
		r.releaseInterface(ctx, iface)
		return nil, err
	}

	inst := &StationInstance{SSID: ssid, Interface: iface, Kind: StationIBSS}
	r.stationInstances = append(r.stationInstances, inst)
	r.log.Info().Str("iface", iface).Str("ssid", ssid).Msg("joined IBSS network")
	return inst, nil
}

// ConnectManaged starts a client daemon associated to the AP at apIndex.
// The resulting peer lets connectivity tests run against an entity on the
// same broadcast segment as the device under test. A full client daemon
// is used rather than a bare join so features like TDLS stay available.
func (r *Router) ConnectManaged(ctx context.Context, apIndex int) (*StationInstance, error) {
	if len(r.apInstances) == 0 {
		return nil, notConfiguredError{what: "AP instance"}
	}
	if len(r.stationInstances) > 0 {
		return nil, fmt.Errorf("station is already configured")
	}
	ap, err := r.apInstance(apIndex)
	if err != nil {
		return nil, err
	}

	ssid := ap.SSID
	channel, err := r.WifiChannel(apIndex)
	if err != nil {
		return nil, err
	}
	frequency := hostapd.FrequencyForChannel(channel)
	iface, err := r.ifaces.Get(ctx, frequency, IfaceManaged)
	if err != nil {
		return nil, err
	}

	confFile := fmt.Sprintf(staConfFilePattern, iface)
	logFile := fmt.Sprintf(staLogFilePattern, iface)
	pidFile := fmt.Sprintf(staPIDFilePattern, iface)

	conf := fmt.Sprintf("network={\n  ssid=\"%s\"\n  key_mgmt=NONE\n}\n", ssid)
	if err := remote.WriteFile(ctx, r.host, confFile, conf); err != nil {
		r.releaseInterface(ctx, iface)
		return nil, err
	}

	if _, err := r.host.Run(ctx, "ip link set "+iface+" up"); err != nil {
		r.releaseInterface(ctx, iface)
		return nil, err
	}
	startCmd := fmt.Sprintf("%s -dd -t -i%s -P%s -c%s -Dnl80211 &> %s &",
		cmdWPASupplicant, iface, pidFile, confFile, logFile)
	if _, err := r.host.Run(ctx, startCmd); err != nil {
		r.releaseInterface(ctx, iface)
		return nil, fmt.Errorf("start client daemon: %w", err)
	}

	// The daemon is running now; failures past this point must kill it
	// before giving the interface back.
	abort := func() {
		r.killProcessInstance(ctx, "wpa_supplicant", iface, 0)
		r.releaseInterface(ctx, iface)
	}

	if err := r.waitForLinkUp(ctx, iface); err != nil {
		abort()
		return nil, err
	}

	// The peer gets the deterministic .253 address on the AP's subnet.
	peerAddr := fmt.Sprintf("%s/%d", LocalPeerAddress(apIndex), localPrefixLen)
	if _, err := r.host.Run(ctx, fmt.Sprintf("ip addr add %s dev %s", peerAddr, iface)); err != nil {
		abort()
		return nil, err
	}

	// Two interfaces now sit on the same broadcast segment: loosen
	// reverse-path filtering on the client side and stop both sides from
	// answering ARP for each other's addresses.
	sysctls := []string{
		fmt.Sprintf("echo 2 > /proc/sys/net/ipv4/conf/%s/rp_filter", iface),
		fmt.Sprintf("echo 1 > /proc/sys/net/ipv4/conf/%s/arp_ignore", iface),
		fmt.Sprintf("echo 1 > /proc/sys/net/ipv4/conf/%s/arp_ignore", ap.Interface),
	}
	for _, cmd := range sysctls {
		if _, err := r.host.Run(ctx, cmd); err != nil {
			abort()
			return nil, err
		}
	}

	inst := &StationInstance{SSID: ssid, Interface: iface, Kind: StationManaged}
	r.stationInstances = append(r.stationInstances, inst)
	r.log.Info().Str("iface", iface).Str("ssid", ssid).Msg("connected managed station")
	return inst, nil
}

// waitForLinkUp polls `iw dev <iface> link` until an association shows.
// The wait is bounded by LinkUpTimeout; a negative timeout waits forever,
// which matches the behavior this component historically had.
func (r *Router) waitForLinkUp(ctx context.Context, iface string) error {
	var deadline time.Time
	if r.linkUpTimeout > 0 {
		deadline = time.Now().Add(r.linkUpTimeout)
	}
	for {
		res, err := r.host.Run(ctx, fmt.Sprintf("iw dev %s link | grep -q Connected", iface),
			remote.IgnoreStatus())
		if err != nil {
			return err
		}
		if res.ExitStatus == 0 {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for link on %s", iface)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}

// leaveStation dispatches teardown by association kind and brings the
// link down. Local servers are released by the caller.
func (r *Router) leaveStation(ctx context.Context, inst *StationInstance) {
	switch inst.Kind {
	case StationIBSS:
		if _, err := r.host.Run(ctx, "iw dev "+inst.Interface+" ibss leave", remote.IgnoreStatus()); err != nil {
			r.log.Warn().Err(err).Str("iface", inst.Interface).Msg("IBSS leave failed")
		}
	case StationManaged:
		r.killProcessInstance(ctx, "wpa_supplicant", inst.Interface, 0)
	default:
		if _, err := r.host.Run(ctx, "iw dev "+inst.Interface+" disconnect", remote.IgnoreStatus()); err != nil {
			r.log.Warn().Err(err).Str("iface", inst.Interface).Msg("disconnect failed")
		}
	}
	if _, err := r.host.Run(ctx, "ip link set "+inst.Interface+" down", remote.IgnoreStatus()); err != nil {
		r.log.Warn().Err(err).Str("iface", inst.Interface).Msg("link down failed")
	}
	r.releaseInterface(ctx, inst.Interface)
}

// PeerMACAddress returns the MAC address of the station interface.
func (r *Router) PeerMACAddress(ctx context.Context) (string, error) {
	if len(r.stationInstances) == 0 {
		return "", notConfiguredError{what: "station instance"}
	}
	return r.interfaceMAC(ctx, r.stationInstances[0].Interface)
}
