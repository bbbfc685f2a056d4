package router

// startupTimeoutError signals that the AP daemon produced no success marker
// within the startup window.
type startupTimeoutError struct{ iface string }

func (e startupTimeoutError) Error() string {
	return "timed out waiting for AP daemon on " + e.iface + " to start"
}

// IsStartupTimeout reports whether err is a startup window expiry.
func IsStartupTimeout(err error) bool {
	_, ok := err.(startupTimeoutError)
	return ok
}

// badConfigurationError signals that the daemon logged its failure marker:
// the configuration was rejected before the startup window elapsed.
type badConfigurationError struct{ iface string }

func (e badConfigurationError) Error() string {
	return "AP daemon failed to initialize interface " + e.iface
}

// IsBadConfiguration reports whether err indicates a rejected configuration.
func IsBadConfiguration(err error) bool {
	_, ok := err.(badConfigurationError)
	return ok
}

// processDiedError signals that the daemon process exited mid-startup.
type processDiedError struct {
	iface string
	pid   int
}

func (e processDiedError) Error() string {
	return "AP daemon process on " + e.iface + " terminated during startup"
}

// IsProcessDied reports whether err indicates an early daemon exit.
func IsProcessDied(err error) bool {
	_, ok := err.(processDiedError)
	return ok
}

// resourceExhaustedError signals that the local server pool is full.
type resourceExhaustedError struct{}

func (resourceExhaustedError) Error() string {
	return "exhausted available local servers"
}

// IsResourceExhausted reports whether err indicates pool exhaustion.
func IsResourceExhausted(err error) bool {
	_, ok := err.(resourceExhaustedError)
	return ok
}

// notConfiguredError signals an operation that needs an instance when none
// exists. A caller error, not a router fault.
type notConfiguredError struct{ what string }

func (e notConfiguredError) Error() string { return e.what + " not configured" }

// IsNotConfigured reports whether err indicates a missing instance.
func IsNotConfigured(err error) bool {
	_, ok := err.(notConfiguredError)
	return ok
}

// ambiguousInstanceError signals that multiple AP instances exist and the
// operation got no explicit index.
type ambiguousInstanceError struct{ count int }

func (e ambiguousInstanceError) Error() string {
	return "no instance specified with multiple instances present"
}

// IsAmbiguousInstance reports whether err indicates a missing instance index.
func IsAmbiguousInstance(err error) bool {
	_, ok := err.(ambiguousInstanceError)
	return ok
}
