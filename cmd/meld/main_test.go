package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/meld/internal/errors"
	"github.com/vango-dev/meld/pkg/engine"
	"github.com/vango-dev/meld/pkg/snapshot"
)

func TestLoadConfigAppliesFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meld.yaml")
	yaml := "debounce: 100ms\ntransport:\n  url: ws://example.test/meld\n  codec: msgpack\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(runFlags{configPath: path, codec: "json", control: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Transport.URL != "ws://example.test/meld" || cfg.Transport.Codec != "json" {
		t.Errorf("transport = %+v", cfg.Transport)
	}
	if cfg.DebounceDuration().Milliseconds() != 100 || cfg.Control.Addr != "127.0.0.1:0" {
		t.Errorf("debounce = %v control = %q", cfg.DebounceDuration(), cfg.Control.Addr)
	}

	if _, err := loadConfig(runFlags{configPath: path, codec: "xml"}); errors.CodeOf(err) != "M051" {
		t.Errorf("invalid codec: err = %v", err)
	}
}

func TestRuntimeDeps(t *testing.T) {
	cfg, err := loadConfig(runFlags{configPath: writeJSON(t, `{"snapshot":{"backend":"s3","bucket":"b","region":"eu-west-1"}}`)})
	if err != nil {
		t.Fatal(err)
	}
	deps, err := newRuntimeDeps(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := deps.store.(*snapshot.S3Store); !ok {
		t.Errorf("store = %T, want S3Store", deps.store)
	}
	if len(engineOptions(cfg, deps, newLogger("debug"))) == 0 {
		t.Error("no engine options")
	}
	topts, err := transportOptions(cfg, deps, newLogger("info"))
	if err != nil || len(topts) == 0 {
		t.Errorf("transportOptions() = %d, %v", len(topts), err)
	}

	cfg.Snapshot.Backend = "memory"
	if deps, _ := newRuntimeDeps(cfg); deps == nil {
		t.Fatal("memory backend failed")
	} else if _, ok := deps.store.(*snapshot.MemoryStore); !ok {
		t.Errorf("store = %T", deps.store)
	}
}

func writeJSON(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meld.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunInspect(t *testing.T) {
	infos := []engine.Info{{ID: "c1", Name: "Greeter", Elements: 3, Queue: []string{"syncInput(name)"}, Events: []string{"click", "input"}}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/components":
			json.NewEncoder(w).Encode(infos)
		case "/components/c1":
			one := infos[0]
			one.Markup = `<div meld:id="c1"></div>`
			json.NewEncoder(w).Encode(one)
		default:
			http.Error(w, `{"code":"M031"}`, http.StatusNotFound)
		}
	}))
	defer srv.Close()
	addr := strings.TrimPrefix(srv.URL, "http://")

	var out bytes.Buffer
	if err := runInspect(context.Background(), &out, addr, "", false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Greeter") || !strings.Contains(out.String(), "click,input") {
		t.Errorf("table =\n%s", out.String())
	}

	out.Reset()
	if err := runInspect(context.Background(), &out, addr, "c1", false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `meld:id="c1"`) {
		t.Errorf("single =\n%s", out.String())
	}

	if err := runInspect(context.Background(), &out, addr, "zz", false); errors.CodeOf(err) != "M060" {
		t.Errorf("missing component: err = %v", err)
	}
}
