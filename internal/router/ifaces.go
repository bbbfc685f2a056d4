package router

import (
	"context"
	"fmt"
)

// IfaceMode is the device mode an interface is requested in.
type IfaceMode string

const (
	IfaceManaged IfaceMode = "managed"
	IfaceIBSS    IfaceMode = "ibss"
	IfaceMonitor IfaceMode = "monitor"
)

// GetOption narrows an interface request.
type GetOption func(*getOptions)

type getOptions struct {
	samePhyAs string
}

// SamePhyAs requires the returned interface to share a phy with iface.
// Used for monitor-mode frame injection alongside a running AP.
func SamePhyAs(iface string) GetOption {
	return func(o *getOptions) { o.samePhyAs = iface }
}

// InterfaceAllocator hands out physical wireless interfaces by capability
// and takes them back.
type InterfaceAllocator interface {
	// Get resolves a free interface able to operate at frequency (MHz, 0 =
	// any) in the given mode.
	Get(ctx context.Context, frequency int, mode IfaceMode, opts ...GetOption) (string, error)
	// Release returns an interface to the pool.
	Release(ctx context.Context, name string) error
	// Phy returns the phy an interface belongs to.
	Phy(name string) (string, error)
}

// IfaceSpec describes one interface in a static inventory.
type IfaceSpec struct {
	Name  string
	Phy   string
	// Modes the device supports.
	Modes []IfaceMode
	// SupportsHighBand is set when the device tunes the 5GHz band.
	SupportsHighBand bool
}

// StaticAllocator allocates from a fixed inventory of interfaces declared
// in the session config.
type StaticAllocator struct {
	specs []IfaceSpec
	busy  map[string]bool
}

// NewStaticAllocator builds an allocator over the given inventory.
func NewStaticAllocator(specs []IfaceSpec) *StaticAllocator {
	return &StaticAllocator{specs: specs, busy: make(map[string]bool)}
}

func (a *StaticAllocator) supports(s IfaceSpec, frequency int, mode IfaceMode) bool {
	modeOK := false
	for _, m := range s.Modes {
		if m == mode {
			modeOK = true
			break
		}
	}
	if !modeOK {
		return false
	}
	if frequency > 5000 && !s.SupportsHighBand {
		return false
	}
	return true
}

func (a *StaticAllocator) Get(ctx context.Context, frequency int, mode IfaceMode, opts ...GetOption) (string, error) {
	var o getOptions
	for _, op := range opts {
		op(&o)
	}
	var samePhy string
	if o.samePhyAs != "" {
		var err error
		samePhy, err = a.Phy(o.samePhyAs)
		if err != nil {
			return "", err
		}
	}
	for _, s := range a.specs {
		if a.busy[s.Name] {
			continue
		}
		if samePhy != "" && s.Phy != samePhy {
			continue
		}
		if !a.supports(s, frequency, mode) {
			continue
		}
		a.busy[s.Name] = true
		return s.Name, nil
	}
	return "", fmt.Errorf("no free interface for frequency %d mode %s", frequency, mode)
}

func (a *StaticAllocator) Release(ctx context.Context, name string) error {
	if !a.busy[name] {
		return fmt.Errorf("interface %s is not allocated", name)
	}
	delete(a.busy, name)
	return nil
}

func (a *StaticAllocator) Phy(name string) (string, error) {
	for _, s := range a.specs {
		if s.Name == name {
			return s.Phy, nil
		}
	}
	return "", fmt.Errorf("unknown interface %s", name)
}
