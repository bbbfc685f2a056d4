package router

import (
	"strconv"

	"wifirouterd/pkg/types"
)

// Status returns a read-only projection of the session state.
func (r *Router) Status() types.StatusResponse {
	resp := types.StatusResponse{
		APs:              []types.APStatus{},
		Stations:         []types.StationStatus{},
		LocalServers:     []types.LocalServerStatus{},
		TotalAPTeardowns: r.totalAPTeardowns,
	}
	for _, inst := range r.apInstances {
		ch, _ := strconv.Atoi(inst.Params.Get("channel"))
		resp.APs = append(resp.APs, types.APStatus{
			SSID:      inst.SSID,
			Interface: inst.Interface,
			State:     string(inst.State),
			Channel:   ch,
			PID:       inst.PID,
		})
	}
	for _, inst := range r.stationInstances {
		resp.Stations = append(resp.Stations, types.StationStatus{
			SSID:      inst.SSID,
			Interface: inst.Interface,
			Kind:      string(inst.Kind),
		})
	}
	for i, server := range r.localServers {
		resp.LocalServers = append(resp.LocalServers, types.LocalServerStatus{
			Index:     i,
			Subnet:    server.Netblock.SubnetCIDR(),
			Address:   server.Netblock.Addr.String(),
			Interface: server.Interface,
		})
	}
	return resp
}
