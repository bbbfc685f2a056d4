package router

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"wifirouterd/internal/hostapd"
	"wifirouterd/internal/remote"
)

const (
	// Markers the AP daemon writes to its log during startup.
	apSuccessMarker = "Completing interface initialization"
	apFailureMarker = "Interface initialization failed"
)

// startAP allocates an interface, renders and writes the daemon config,
// starts the daemon backgrounded, and polls its log until the success
// marker appears.
func (r *Router) startAP(ctx context.Context, cfg *hostapd.Config) (*APInstance, error) {
	iface, err := r.ifaces.Get(ctx, cfg.Frequency(), IfaceManaged)
	if err != nil {
		return nil, err
	}

	inst := &APInstance{
		Interface: iface,
		ConfFile:  fmt.Sprintf(apConfFilePattern, iface),
		LogFile:   fmt.Sprintf(apLogFilePattern, iface),
		PIDFile:   fmt.Sprintf(apPIDFilePattern, iface),
		CtrlFile:  fmt.Sprintf(apCtrlFilePattern, iface),
		State:     StateStarting,
	}

	ssid := cfg.SSID
	if ssid == "" {
		ssid = r.buildSSID(cfg.SSIDSuffix)
	}
	params, err := cfg.Render(iface, inst.CtrlFile, ssid)
	if err != nil {
		r.releaseInterface(ctx, iface)
		return nil, err
	}
	inst.SSID = ssid
	inst.Params = params

	r.log.Info().Str("iface", iface).Str("ssid", ssid).Msg("starting AP daemon")

	var lines []string
	for _, kv := range params {
		lines = append(lines, kv.Key+"="+kv.Value)
	}
	if err := remote.WriteFile(ctx, r.host, inst.ConfFile, strings.Join(lines, "\n")); err != nil {
		r.releaseInterface(ctx, iface)
		return nil, err
	}

	// Clear leftovers from a previous run and make sure no supplicant owns
	// the device.
	r.host.Run(ctx, "rm "+inst.LogFile, remote.IgnoreStatus())
	r.host.Run(ctx, "rm "+inst.PIDFile, remote.IgnoreStatus())
	r.host.Run(ctx, "stop wpasupplicant", remote.IgnoreStatus())

	startCmd := fmt.Sprintf("%s -dd -B -t -f %s -P %s %s",
		cmdHostapd, inst.LogFile, inst.PIDFile, inst.ConfFile)
	if _, err := r.host.Run(ctx, startCmd); err != nil {
		r.releaseInterface(ctx, iface)
		return nil, fmt.Errorf("start AP daemon: %w", err)
	}

	pidOut, err := r.host.Run(ctx, "cat "+inst.PIDFile)
	if err != nil {
		r.releaseInterface(ctx, iface)
		return nil, fmt.Errorf("read AP daemon pid: %w", err)
	}
	inst.PID, _ = strconv.Atoi(strings.TrimSpace(pidOut.Stdout))

	if err := r.waitForAPUp(ctx, inst); err != nil {
		inst.State = StateFailed
		apStartFailures.WithLabelValues(failureReason(err)).Inc()
		r.releaseInterface(ctx, iface)
		return nil, err
	}

	inst.State = StateActive
	apStartsTotal.Inc()
	r.apInstances = append(r.apInstances, inst)
	return inst, nil
}

// waitForAPUp polls the daemon log at the configured interval until the
// success marker appears, the failure marker appears (fail fast, even
// before the window elapses), the process dies, or the window elapses.
func (r *Router) waitForAPUp(ctx context.Context, inst *APInstance) error {
	deadline := time.Now().Add(r.startupTimeout)
	for time.Now().Before(deadline) {
		res, err := r.host.Run(ctx,
			fmt.Sprintf("grep %q %s", apSuccessMarker, inst.LogFile),
			remote.IgnoreStatus())
		if err != nil {
			return err
		}
		if res.ExitStatus == 0 {
			return nil
		}

		res, err = r.host.Run(ctx,
			fmt.Sprintf("grep %q %s", apFailureMarker, inst.LogFile),
			remote.IgnoreStatus())
		if err != nil {
			return err
		}
		if res.ExitStatus == 0 {
			return badConfigurationError{iface: inst.Interface}
		}

		if inst.PID != 0 {
			res, err = r.host.Run(ctx, fmt.Sprintf("kill -0 %d", inst.PID),
				remote.IgnoreStatus())
			if err != nil {
				return err
			}
			if res.ExitStatus != 0 {
				return processDiedError{iface: inst.Interface, pid: inst.PID}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
	return startupTimeoutError{iface: inst.Interface}
}

// stopAP tears down one AP instance. Every step is best-effort: a missing
// log file or already-dead process must not block the rest of the
// teardown.
func (r *Router) stopAP(ctx context.Context, inst *APInstance, silent bool) {
	inst.State = StateTearingDown
	if silent {
		// Removing the interface first means the daemon has nothing to
		// send deauthentication frames on.
		r.removeInterface(ctx, inst.Interface)
	}

	r.killProcessInstance(ctx, "hostapd", inst.ConfFile, r.killWait)

	if remote.FileExists(ctx, r.host, inst.LogFile) {
		dest := filepath.Join(r.resultsDir,
			fmt.Sprintf("hostapd_router_%d_%s.log", r.totalAPTeardowns, inst.Interface))
		if err := r.collectFile(ctx, inst.LogFile, dest); err != nil {
			r.log.Warn().Err(err).Str("file", inst.LogFile).Msg("failed to collect AP daemon log")
		}
	} else {
		r.log.Warn().Str("file", inst.LogFile).Msg("did not collect AP daemon log because it was missing")
	}

	r.releaseInterface(ctx, inst.Interface)
	inst.State = StateUnconfigured
	apTeardownsTotal.Inc()
}

// killProcessInstance kills process by name, narrowed to one instance by a
// name+path pattern. A non-zero wait embeds a bounded poll for process
// exit in the remote command itself rather than polling from this side.
func (r *Router) killProcessInstance(ctx context.Context, process, instance string, wait time.Duration) {
	searchArg := process
	if instance != "" {
		searchArg = fmt.Sprintf("-f %q", process+".*"+instance)
	}
	cmd := fmt.Sprintf("pkill %s >/dev/null 2>&1", searchArg)
	opts := []remote.RunOption{remote.IgnoreStatus()}
	if wait > 0 {
		cmd += fmt.Sprintf(" && while pgrep %s &> /dev/null; do sleep 1; done", searchArg)
		opts = append(opts, remote.WithTimeout(wait))
	}
	if _, err := r.host.Run(ctx, cmd, opts...); err != nil {
		r.log.Debug().Err(err).Str("process", process).Msg("kill command failed")
	}
}

// KillAllAPDaemons kills every AP daemon on the host, tracked or not.
func (r *Router) KillAllAPDaemons(ctx context.Context) {
	r.killProcessInstance(ctx, "hostapd", "", r.killWait)
}

// removeInterface deletes a wireless interface from the host.
func (r *Router) removeInterface(ctx context.Context, iface string) {
	if _, err := r.host.Run(ctx, "iw dev "+iface+" del", remote.IgnoreStatus()); err != nil {
		r.log.Warn().Err(err).Str("iface", iface).Msg("failed to remove interface")
	}
}

// releaseInterface returns an interface to the allocator, logging rather
// than failing teardown.
func (r *Router) releaseInterface(ctx context.Context, iface string) {
	if err := r.ifaces.Release(ctx, iface); err != nil {
		r.log.Warn().Err(err).Str("iface", iface).Msg("failed to release interface")
	}
}

// collectFile copies a remote file into the results directory through the
// command channel.
func (r *Router) collectFile(ctx context.Context, remotePath, localPath string) error {
	content, err := remote.ReadFile(ctx, r.host, remotePath)
	if err != nil {
		return err
	}
	return writeLocalFile(localPath, content)
}

// DeauthClient forces a deauthentication of the client with the given MAC
// through the most recent AP's control socket.
func (r *Router) DeauthClient(ctx context.Context, clientMAC string) error {
	if len(r.apInstances) == 0 {
		return notConfiguredError{what: "AP instance"}
	}
	inst := r.apInstances[len(r.apInstances)-1]
	ctrl := inst.Params.Get("ctrl_interface")
	_, err := r.host.Run(ctx,
		fmt.Sprintf("%s -p%s deauthenticate %s", cmdHostapdCLI, ctrl, clientMAC))
	return err
}

// ConfirmPMKSACacheUse verifies that a roam on the AP at index reused a
// cached PMKSA instead of a full re-auth.
func (r *Router) ConfirmPMKSACacheUse(ctx context.Context, index int) error {
	inst, err := r.apInstance(index)
	if err != nil {
		return err
	}
	res, err := r.host.Run(ctx,
		fmt.Sprintf("grep -q %q %s", "PMK from PMKSA cache", inst.LogFile),
		remote.IgnoreStatus())
	if err != nil {
		return err
	}
	if res.ExitStatus != 0 {
		return fmt.Errorf("PMKSA cache was not used in roaming")
	}
	return nil
}

// DetectClientDeauth reports whether the AP at index has logged a
// deauthentication from clientMAC.
func (r *Router) DetectClientDeauth(ctx context.Context, clientMAC string, index int) (bool, error) {
	inst, err := r.apInstance(index)
	if err != nil {
		return false, err
	}
	msg := fmt.Sprintf("%s: deauthentication: STA=%s", inst.Interface, clientMAC)
	res, err := r.host.Run(ctx,
		fmt.Sprintf("grep -qi '%s' %s", msg, inst.LogFile),
		remote.IgnoreStatus())
	if err != nil {
		return false, err
	}
	return res.ExitStatus == 0, nil
}

// DetectClientCoexistenceReport reports whether the AP at index has logged
// a 20/40MHz BSS coexistence action frame from clientMAC.
func (r *Router) DetectClientCoexistenceReport(ctx context.Context, clientMAC string, index int) (bool, error) {
	inst, err := r.apInstance(index)
	if err != nil {
		return false, err
	}
	msg := fmt.Sprintf("nl80211: MLME event frame - hexdump(len=.*): "+
		".. .. .. .. .. .. .. .. .. .. %s "+
		".. .. .. .. .. .. .. .. 04 00.*48 01 ..",
		strings.Join(strings.Split(clientMAC, ":"), " "))
	res, err := r.host.Run(ctx,
		fmt.Sprintf("grep -qi '%s' %s", msg, inst.LogFile),
		remote.IgnoreStatus())
	if err != nil {
		return false, err
	}
	return res.ExitStatus == 0, nil
}
