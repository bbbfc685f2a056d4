package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}

	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/abs/path", "/abs/path"},
		{"rel/path", "rel/path"},
		{"~", home},
		{"~/results", filepath.Join(home, "results")},
	}
	for _, c := range cases {
		got, err := ExpandHome(c.in)
		if err != nil {
			t.Fatalf("ExpandHome(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ExpandHome(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPathExists(t *testing.T) {
	d := t.TempDir()
	if !PathExists(d) {
		t.Fatalf("expected %s to exist", d)
	}
	if PathExists(filepath.Join(d, "nope")) {
		t.Fatalf("expected missing path to not exist")
	}
}

func TestWriteFileMkdir(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "logs", "hostapd_router_0_managed0.log")
	if err := WriteFileMkdir(p, "line1\nline2\n"); err != nil {
		t.Fatalf("WriteFileMkdir: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(b) != "line1\nline2\n" {
		t.Fatalf("unexpected content: %q", string(b))
	}
}
