package router

import (
	"context"
	"fmt"
	"strings"

	"wifirouterd/internal/netblock"
	"wifirouterd/internal/remote"
)

const (
	maxLocalServers = 256

	// Host offsets inside each /24: DHCP leases span .1-.128, the router
	// takes .254 and the locally associated peer takes .253.
	dhcpLowOffset    = 1
	dhcpHighOffset   = 128
	gatewayOffset    = 254
	peerOffset       = 253
	localPrefixLen   = 24
	subnetOctetsBase = "192.168"

	dhcpConfFilePattern  = "/tmp/dnsmasq-test-%s.conf"
	dhcpLeaseFilePattern = "/tmp/dnsmasq-test-%s.leases"
	cmdDnsmasq           = "dnsmasq"
)

// LocalServerAddress returns the static router address for local server
// index, e.g. 192.168.0.254 for index 0.
func LocalServerAddress(index int) string {
	return fmt.Sprintf("%s.%d.%d", subnetOctetsBase, index, gatewayOffset)
}

// LocalPeerAddress returns the address reserved for a locally associated
// peer on local server index, e.g. 192.168.0.253 for index 0.
func LocalPeerAddress(index int) string {
	return fmt.Sprintf("%s.%d.%d", subnetOctetsBase, index, peerOffset)
}

// StartLocalServer allocates the next subnet, assigns it to iface, and
// starts a DHCP server bound to that interface only. Subnets are computed
// from the current active count: indices are positions, not persistent
// identifiers.
func (r *Router) StartLocalServer(ctx context.Context, iface string) (*LocalServer, error) {
	r.log.Info().Str("iface", iface).Msg("starting local server")

	if len(r.localServers) >= maxLocalServers {
		return nil, resourceExhaustedError{}
	}

	index := len(r.localServers)
	block, err := netblock.FromAddr(LocalServerAddress(index), localPrefixLen)
	if err != nil {
		return nil, err
	}

	server := &LocalServer{
		Index:     index,
		Netblock:  block,
		Interface: iface,
		ConfFile:  fmt.Sprintf(dhcpConfFilePattern, iface),
		LeaseFile: fmt.Sprintf(dhcpLeaseFilePattern, iface),
	}

	if _, err := r.host.Run(ctx, "ip addr flush "+iface); err != nil {
		return nil, err
	}
	ipParams := fmt.Sprintf("%s broadcast %s dev %s",
		block.CIDR(), block.Broadcast(), iface)
	if _, err := r.host.Run(ctx, "ip addr add "+ipParams); err != nil {
		return nil, err
	}
	if _, err := r.host.Run(ctx, "ip link set "+iface+" up"); err != nil {
		return nil, err
	}
	if err := r.startDHCPServer(ctx, server); err != nil {
		return nil, err
	}

	r.localServers = append(r.localServers, server)
	localServersActive.Set(float64(len(r.localServers)))
	return server, nil
}

// startDHCPServer writes the DHCP daemon config for server and starts it.
// port=0 disables the embedded DNS responder so concurrent instances do
// not collide on port 53.
func (r *Router) startDHCPServer(ctx context.Context, server *LocalServer) error {
	conf := strings.Join([]string{
		"port=0",
		"bind-interfaces",
		"log-dhcp",
		fmt.Sprintf("dhcp-range=%s,%s",
			server.Netblock.AddrInBlock(dhcpLowOffset),
			server.Netblock.AddrInBlock(dhcpHighOffset)),
		"interface=" + server.Interface,
		"dhcp-leasefile=" + server.LeaseFile,
	}, "\n")
	if err := remote.WriteFile(ctx, r.host, server.ConfFile, conf); err != nil {
		return err
	}
	if _, err := r.host.Run(ctx, cmdDnsmasq+" --conf-file="+server.ConfFile); err != nil {
		return fmt.Errorf("start DHCP server: %w", err)
	}
	return nil
}

// StopLocalServer stops the DHCP server, removes the assigned address,
// and drops the server from the active list when it is still tracked.
// The remote steps are best-effort: the interface or process may already
// be gone from an earlier teardown step.
func (r *Router) StopLocalServer(ctx context.Context, server *LocalServer) {
	r.killProcessInstance(ctx, cmdDnsmasq, server.ConfFile, 0)
	ipParams := fmt.Sprintf("%s broadcast %s dev %s",
		server.Netblock.CIDR(), server.Netblock.Broadcast(), server.Interface)
	if _, err := r.host.Run(ctx, "ip addr del "+ipParams, remote.IgnoreStatus()); err != nil {
		r.log.Warn().Err(err).Str("iface", server.Interface).Msg("failed to remove local server address")
	}
	for i, s := range r.localServers {
		if s == server {
			r.localServers = append(r.localServers[:i], r.localServers[i+1:]...)
			break
		}
	}
	localServersActive.Set(float64(len(r.localServers)))
}

// stopAllDHCPServers kills every DHCP daemon on the host, tracked or not.
func (r *Router) stopAllDHCPServers(ctx context.Context) {
	r.killProcessInstance(ctx, cmdDnsmasq, "", 0)
}
