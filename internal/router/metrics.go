package router

import "github.com/prometheus/client_golang/prometheus"

var (
	apStartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wifirouterd",
			Subsystem: "router",
			Name:      "ap_starts_total",
			Help:      "Total AP daemon instances started successfully",
		},
	)

	apStartFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wifirouterd",
			Subsystem: "router",
			Name:      "ap_start_failures_total",
			Help:      "AP daemon startup failures by reason",
		},
		[]string{"reason"},
	)

	apTeardownsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wifirouterd",
			Subsystem: "router",
			Name:      "ap_teardowns_total",
			Help:      "Total AP daemon instances torn down",
		},
	)

	localServersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wifirouterd",
			Subsystem: "router",
			Name:      "local_servers_active",
			Help:      "Currently active local DHCP servers",
		},
	)
)

func init() {
	prometheus.MustRegister(apStartsTotal, apStartFailures, apTeardownsTotal, localServersActive)
}
