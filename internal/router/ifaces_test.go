package router_test

import (
	"context"
	"testing"

	"wifirouterd/internal/router"
)

func TestStaticAllocatorModes(t *testing.T) {
	a := router.NewStaticAllocator([]router.IfaceSpec{
		{Name: "managed0", Phy: "phy0", Modes: []router.IfaceMode{router.IfaceManaged}},
		{Name: "monitor0", Phy: "phy0", Modes: []router.IfaceMode{router.IfaceMonitor}},
	})
	ctx := context.Background()

	got, err := a.Get(ctx, 2437, router.IfaceManaged)
	if err != nil {
		t.Fatalf("Get managed: %v", err)
	}
	if got != "managed0" {
		t.Fatalf("Get managed = %q", got)
	}
	if _, err := a.Get(ctx, 2437, router.IfaceManaged); err == nil {
		t.Fatalf("expected exhaustion for second managed request")
	}
	got, err = a.Get(ctx, 2437, router.IfaceMonitor)
	if err != nil {
		t.Fatalf("Get monitor: %v", err)
	}
	if got != "monitor0" {
		t.Fatalf("Get monitor = %q", got)
	}
}

func TestStaticAllocatorHighBand(t *testing.T) {
	a := router.NewStaticAllocator([]router.IfaceSpec{
		{Name: "lowband", Phy: "phy0", Modes: []router.IfaceMode{router.IfaceManaged}},
		{Name: "highband", Phy: "phy1", Modes: []router.IfaceMode{router.IfaceManaged}, SupportsHighBand: true},
	})
	ctx := context.Background()

	got, err := a.Get(ctx, 5220, router.IfaceManaged)
	if err != nil {
		t.Fatalf("Get 5GHz: %v", err)
	}
	if got != "highband" {
		t.Fatalf("5GHz request got %q", got)
	}
	got, err = a.Get(ctx, 2437, router.IfaceManaged)
	if err != nil {
		t.Fatalf("Get 2.4GHz: %v", err)
	}
	if got != "lowband" {
		t.Fatalf("2.4GHz request got %q", got)
	}
}

func TestStaticAllocatorSamePhy(t *testing.T) {
	a := router.NewStaticAllocator([]router.IfaceSpec{
		{Name: "managed0", Phy: "phy0", Modes: []router.IfaceMode{router.IfaceManaged}},
		{Name: "monitor1", Phy: "phy1", Modes: []router.IfaceMode{router.IfaceMonitor}},
		{Name: "monitor0", Phy: "phy0", Modes: []router.IfaceMode{router.IfaceMonitor}},
	})
	ctx := context.Background()

	if _, err := a.Get(ctx, 2437, router.IfaceManaged); err != nil {
		t.Fatalf("Get managed: %v", err)
	}
	got, err := a.Get(ctx, 0, router.IfaceMonitor, router.SamePhyAs("managed0"))
	if err != nil {
		t.Fatalf("Get monitor same phy: %v", err)
	}
	if got != "monitor0" {
		t.Fatalf("same-phy monitor = %q", got)
	}
}

func TestStaticAllocatorRelease(t *testing.T) {
	a := router.NewStaticAllocator([]router.IfaceSpec{
		{Name: "managed0", Phy: "phy0", Modes: []router.IfaceMode{router.IfaceManaged}},
	})
	ctx := context.Background()

	if err := a.Release(ctx, "managed0"); err == nil {
		t.Fatalf("expected error releasing a free interface")
	}
	if _, err := a.Get(ctx, 0, router.IfaceManaged); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := a.Release(ctx, "managed0"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	got, err := a.Get(ctx, 0, router.IfaceManaged)
	if err != nil {
		t.Fatalf("Get after release: %v", err)
	}
	if got != "managed0" {
		t.Fatalf("Get after release = %q", got)
	}
}

func TestStaticAllocatorPhy(t *testing.T) {
	a := router.NewStaticAllocator([]router.IfaceSpec{
		{Name: "managed0", Phy: "phy0", Modes: []router.IfaceMode{router.IfaceManaged}},
	})
	phy, err := a.Phy("managed0")
	if err != nil {
		t.Fatalf("Phy: %v", err)
	}
	if phy != "phy0" {
		t.Fatalf("Phy = %q", phy)
	}
	if _, err := a.Phy("ghost0"); err == nil {
		t.Fatalf("expected error for unknown interface")
	}
}
