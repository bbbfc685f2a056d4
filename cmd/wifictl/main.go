package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"wifirouterd/pkg/types"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	addr := "http://127.0.0.1:8619"
	if v := os.Getenv("WIFICTL_ADDR"); v != "" {
		addr = v
	}

	root := &cobra.Command{
		Use:           "wifictl",
		Short:         "Drive a wifirouterd session",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&addr, "addr", addr, "wifirouterd base URL (defaults WIFICTL_ADDR)")
	cli := func() *client { return newClient(addr) }

	statusCmd := &cobra.Command{Use: "status", Short: "Show session state", RunE: func(cmd *cobra.Command, args []string) error {
		var st types.StatusResponse
		if err := cli().do("GET", "/status", nil, &st); err != nil {
			return err
		}
		return printJSON(st)
	}}

	var cfgReq types.ConfigureRequest
	configureCmd := &cobra.Command{Use: "configure", Short: "Bring up an AP and its local server", RunE: func(cmd *cobra.Command, args []string) error {
		var resp types.ConfigureResponse
		if err := cli().do("POST", "/aps", cfgReq, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	}}
	configureCmd.Flags().StringVar(&cfgReq.Mode, "mode", "", "802.11 mode: a|b|g|n-mixed|n-only")
	configureCmd.Flags().IntVar(&cfgReq.Channel, "channel", 0, "operating channel")
	configureCmd.Flags().StringVar(&cfgReq.SSID, "ssid", "", "fixed SSID (empty = derived)")
	configureCmd.Flags().StringVar(&cfgReq.SSIDSuffix, "ssid-suffix", "", "suffix for the derived SSID")
	configureCmd.Flags().BoolVar(&cfgReq.Hidden, "hidden", false, "suppress SSID broadcast")
	configureCmd.Flags().StringVar(&cfgReq.Passphrase, "passphrase", "", "WPA passphrase (empty = open)")
	configureCmd.Flags().BoolVar(&cfgReq.MultiInterface, "multi", false, "keep already-configured instances")

	var silent bool
	deconfigCmd := &cobra.Command{Use: "deconfig [index]", Short: "Tear down one AP, or everything", Args: cobra.MaximumNArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cli().do("DELETE", "/aps", nil, nil)
		}
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[0])
		}
		path := fmt.Sprintf("/aps/%d", index)
		if silent {
			path += "?silent=1"
		}
		return cli().do("DELETE", path, nil, nil)
	}}
	deconfigCmd.Flags().BoolVar(&silent, "silent", false, "remove the interface before killing the daemon")

	var ssidIndex int
	ssidCmd := &cobra.Command{Use: "ssid", Short: "Print the active SSID", RunE: func(cmd *cobra.Command, args []string) error {
		path := "/ssid"
		if cmd.Flags().Changed("index") {
			path = fmt.Sprintf("/ssid?index=%d", ssidIndex)
		}
		var resp types.SSIDResponse
		if err := cli().do("GET", path, nil, &resp); err != nil {
			return err
		}
		fmt.Println(resp.SSID)
		return nil
	}}
	ssidCmd.Flags().IntVar(&ssidIndex, "index", 0, "AP instance index")

	ibssCmd := &cobra.Command{Use: "ibss", Short: "Join an IBSS network", RunE: func(cmd *cobra.Command, args []string) error {
		var resp types.ConfigureResponse
		if err := cli().do("POST", "/stations/ibss", cfgReq, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	}}
	ibssCmd.Flags().IntVar(&cfgReq.Channel, "channel", 0, "operating channel")
	ibssCmd.Flags().StringVar(&cfgReq.SSID, "ssid", "", "fixed SSID (empty = derived)")

	var apIndex int
	connectCmd := &cobra.Command{Use: "connect", Short: "Connect a managed client to an active AP", RunE: func(cmd *cobra.Command, args []string) error {
		var resp types.ConfigureResponse
		if err := cli().do("POST", "/stations/managed", types.ConnectManagedRequest{APIndex: apIndex}, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	}}
	connectCmd.Flags().IntVar(&apIndex, "ap", 0, "target AP instance index")

	leaveCmd := &cobra.Command{Use: "leave", Short: "Tear down the station association", RunE: func(cmd *cobra.Command, args []string) error {
		return cli().do("DELETE", "/stations", nil, nil)
	}}

	deauthCmd := &cobra.Command{Use: "deauth <client-mac>", Short: "Deauthenticate a client", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		return cli().do("POST", "/deauth", types.DeauthRequest{ClientMAC: args[0]}, nil)
	}}

	var frameReq types.FrameRequest
	frameCmd := &cobra.Command{Use: "frame", Short: "Inject management frames", RunE: func(cmd *cobra.Command, args []string) error {
		var resp types.FrameResponse
		if err := cli().do("POST", "/frames", frameReq, &resp); err != nil {
			return err
		}
		fmt.Println(resp.PID)
		return nil
	}}
	frameCmd.Flags().StringVar(&frameReq.Interface, "iface", "", "interface to inject on")
	frameCmd.Flags().StringVar(&frameReq.FrameType, "type", "", "frame type")
	frameCmd.Flags().IntVar(&frameReq.Channel, "channel", 0, "targeted channel")
	frameCmd.Flags().StringVar(&frameReq.SSIDPrefix, "ssid-prefix", "", "SSID prefix")
	frameCmd.Flags().IntVar(&frameReq.NumBSS, "bss", 0, "number of BSSes")
	frameCmd.Flags().IntVar(&frameReq.FrameCount, "count", 0, "frames to send")
	frameCmd.Flags().IntVar(&frameReq.DelayMS, "delay", 0, "inter-frame delay in ms")

	root.AddCommand(statusCmd, configureCmd, deconfigCmd, ssidCmd, ibssCmd, connectCmd, leaveCmd, deauthCmd, frameCmd)
	return root
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
