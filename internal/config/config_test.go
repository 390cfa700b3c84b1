package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Loader.Radius != 1 || cfg.Loader.MapRadius != 5 {
		t.Fatalf("loader = %+v", cfg.Loader)
	}
	if cfg.Loader.StorageFile != "data/chunkloaders.yml" || cfg.Occupant.Strategy != "auto" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.Worlds) != 3 {
		t.Fatalf("worlds = %d", len(cfg.Worlds))
	}
	a, _ := cfg.Worlds[0].UUID()
	b, _ := cfg.Worlds[0].UUID()
	if a != b {
		t.Fatal("derived world id is not stable")
	}
}

func TestParseClampsRadii(t *testing.T) {
	cfg, err := Parse([]byte(`
[loader]
radius = -4
map_radius = 0
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Loader.Radius != 0 || cfg.Loader.MapRadius != 1 {
		t.Fatalf("loader = %+v", cfg.Loader)
	}
}

func TestParseWorldsAndDurations(t *testing.T) {
	cfg, err := Parse([]byte(`
[server]
tick_rate = "100ms"

[[world]]
uuid = "6f1c1f1e-8f43-4c8e-9d2a-0e9a3f7d8b11"
name = "survival"
spawn_x = -120
spawn_y = 70
spawn_z = 33
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.TickRate != 100*time.Millisecond {
		t.Fatalf("tick rate = %v", cfg.Server.TickRate)
	}
	if len(cfg.Worlds) != 1 || cfg.Worlds[0].SpawnX != -120 {
		t.Fatalf("worlds = %+v", cfg.Worlds)
	}
	id, err := cfg.Worlds[0].UUID()
	if err != nil || id.String() != "6f1c1f1e-8f43-4c8e-9d2a-0e9a3f7d8b11" {
		t.Fatalf("id = %s, %v", id, err)
	}
}

func TestParseRejectsBadWorlds(t *testing.T) {
	cases := map[string]string{
		"bad uuid":  "[[world]]\nuuid = \"nope\"\nname = \"a\"\n",
		"no name":   "[[world]]\nspawn_y = 64\n",
		"duplicate": "[[world]]\nname = \"a\"\n[[world]]\nname = \"a\"\n",
		"bad toml":  "[loader\n",
	}
	for name, in := range cases {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadAndPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	if err := os.WriteFile(path, []byte("[server]\nname = \"test\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPath, path)
	cfg, err := Load(PathFromEnv())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Name != "test" {
		t.Fatalf("name = %q", cfg.Server.Name)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("missing file loaded")
	}
}
