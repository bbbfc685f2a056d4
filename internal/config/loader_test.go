package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml",
		"addr: :9999\nrouter_addr: router:22\nrouter_user: root\nsession_name: roam\nresults_dir: /tmp/results\ninterfaces:\n  - name: managed0\n    phy: phy0\n    modes: [managed, monitor]\n    high_band: true\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.RouterAddr != "router:22" || cfg.RouterUser != "root" || cfg.SessionName != "roam" || cfg.ResultsDir != "/tmp/results" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.Interfaces) != 1 {
		t.Fatalf("expected 1 interface, got %d", len(cfg.Interfaces))
	}
	ic := cfg.Interfaces[0]
	if ic.Name != "managed0" || ic.Phy != "phy0" || len(ic.Modes) != 2 || !ic.HighBand {
		t.Fatalf("unexpected interface: %+v", ic)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json",
		`{"addr":":7070","router_addr":"10.0.0.1:22","router_key_file":"/k","session_name":"s1"}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.RouterAddr != "10.0.0.1:22" || cfg.RouterKeyFile != "/k" || cfg.SessionName != "s1" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml",
		"addr=\":8081\"\nrouter_addr=\"r:22\"\nrouter_password=\"pw\"\nsession_name=\"s2\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.RouterAddr != "r:22" || cfg.RouterPassword != "pw" || cfg.SessionName != "s2" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected error on missing file")
	}
}

func TestLoadMalformed(t *testing.T) {
	d := t.TempDir()
	cases := []struct {
		name    string
		content string
	}{
		{"bad.yaml", "addr: :8080\n: broken\n"},
		{"bad.json", `{ "addr": ":8080", "router_addr": }`},
		{"bad.toml", "addr=:8080\nrouter_addr\n"},
	}
	for _, c := range cases {
		p := writeTempFile(t, d, c.name, c.content)
		if _, err := Load(p); err == nil {
			t.Fatalf("expected unmarshal error for %s", c.name)
		}
	}
}
