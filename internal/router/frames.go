package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"wifirouterd/internal/hostapd"
)

// FrameRequest describes a management frame injection run.
type FrameRequest struct {
	Interface  string
	FrameType  string
	Channel    int
	SSIDPrefix string
	NumBSS     int
	FrameCount int
	// DelayMS is the inter-frame delay in milliseconds.
	DelayMS int
}

// SendManagementFrame spawns a detached frame sender on the router host
// and returns its pid immediately. The process is not tracked or reaped;
// cleanup is the caller's responsibility.
func (r *Router) SendManagementFrame(ctx context.Context, req FrameRequest) (int, error) {
	cmd := fmt.Sprintf("%s -i %s -t %s -c %d",
		cmdSendFrame, req.Interface, req.FrameType, req.Channel)
	if req.SSIDPrefix != "" {
		cmd += " -s " + req.SSIDPrefix
	}
	if req.NumBSS != 0 {
		cmd += fmt.Sprintf(" -b %d", req.NumBSS)
	}
	if req.FrameCount != 0 {
		cmd += fmt.Sprintf(" -n %d", req.FrameCount)
	}
	if req.DelayMS != 0 {
		cmd += fmt.Sprintf(" -d %d", req.DelayMS)
	}
	cmd += fmt.Sprintf(" > %s 2>&1 & echo $!", mgmtFrameSenderLogFile)

	res, err := r.host.Run(ctx, cmd)
	if err != nil {
		return 0, fmt.Errorf("start frame sender: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		return 0, fmt.Errorf("parse frame sender pid: %w", err)
	}
	return pid, nil
}

// SetupManagementFrameInterface brings up a monitor-mode interface tuned
// to channel for frame injection and returns its name.
func (r *Router) SetupManagementFrameInterface(ctx context.Context, channel int) (string, error) {
	frequency := hostapd.FrequencyForChannel(channel)
	if frequency == 0 {
		return "", fmt.Errorf("invalid channel %d", channel)
	}
	iface, err := r.ifaces.Get(ctx, frequency, IfaceMonitor)
	if err != nil {
		return "", err
	}
	if _, err := r.host.Run(ctx, fmt.Sprintf("iw dev %s set freq %d", iface, frequency)); err != nil {
		r.releaseInterface(ctx, iface)
		return "", err
	}
	if _, err := r.host.Run(ctx, "ip link set "+iface+" up"); err != nil {
		r.releaseInterface(ctx, iface)
		return "", err
	}
	return iface, nil
}

// SendManagementFrameOnAP injects a single frame run into an active AP's
// phy through a temporary monitor interface.
func (r *Router) SendManagementFrameOnAP(ctx context.Context, frameType string, channel, apIndex int) error {
	inst, err := r.apInstance(apIndex)
	if err != nil {
		return err
	}
	iface, err := r.ifaces.Get(ctx, 0, IfaceMonitor, SamePhyAs(inst.Interface))
	if err != nil {
		return err
	}
	defer r.releaseInterface(ctx, iface)

	if _, err := r.host.Run(ctx, "ip link set "+iface+" up"); err != nil {
		return err
	}
	cmd := fmt.Sprintf("%s -i %s -t %s -c %d", cmdSendFrame, iface, frameType, channel)
	if _, err := r.host.Run(ctx, cmd); err != nil {
		return fmt.Errorf("send management frame: %w", err)
	}
	return nil
}
