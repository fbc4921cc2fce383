package main

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

// tileServer serves a small PNG-looking body for every request and counts hits.
func tileServer(t *testing.T, status int) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestRunUsage(t *testing.T) {
	if code := run(nil); code != ExitInvalidArgs {
		t.Errorf("run() = %d, want %d", code, ExitInvalidArgs)
	}
	if code := run([]string{"help"}); code != ExitSuccess {
		t.Errorf("run(help) = %d, want %d", code, ExitSuccess)
	}
	if code := run([]string{"upload"}); code != ExitInvalidArgs {
		t.Errorf("run(upload) = %d, want %d", code, ExitInvalidArgs)
	}
	if code := run([]string{"fetch", "-h"}); code != ExitSuccess {
		t.Errorf("run(fetch -h) = %d, want %d", code, ExitSuccess)
	}
}

func TestFetchZoomZero(t *testing.T) {
	server, hits := tileServer(t, http.StatusOK)
	outDir := t.TempDir()

	code := run([]string{"fetch",
		"-u", server.URL + "/{zoom}/{x}/{y}.png",
		"-b", "-1,-1,1,1",
		"-z", "0",
		"-Z", "0",
		"-o", outDir,
		"-t", "2",
		"-ext", "png",
	})
	if code != ExitSuccess {
		t.Fatalf("fetch exited with %d", code)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
	if _, err := os.Stat(filepath.Join(outDir, "0", "0", "0.png")); err != nil {
		t.Errorf("tile not written: %v", err)
	}
}

func TestFetchNoOverwrite(t *testing.T) {
	server, hits := tileServer(t, http.StatusOK)
	outDir := t.TempDir()
	args := []string{
		"-url", server.URL + "/{zoom}/{x}/{y}.png",
		"-bbox", "-179,-80,179,80",
		"-min-zoom", "1",
		"-max-zoom", "2",
		"-output", outDir,
		"-workers", "4",
		"-no-overwrite",
	}

	if code := runFetch(args); code != ExitSuccess {
		t.Fatalf("first fetch exited with %d", code)
	}
	if hits.Load() != 4+16 {
		t.Fatalf("first fetch hits = %d, want 20", hits.Load())
	}

	if code := runFetch(args); code != ExitSuccess {
		t.Fatalf("second fetch exited with %d", code)
	}
	if hits.Load() != 20 {
		t.Errorf("second fetch made %d requests, want 0", hits.Load()-20)
	}

	// Default .jpg extension
	if _, err := os.Stat(filepath.Join(outDir, "2", "3", "3.jpg")); err != nil {
		t.Errorf("tile not written: %v", err)
	}
}

func TestFetchLimit(t *testing.T) {
	server, hits := tileServer(t, http.StatusOK)

	code := runFetch([]string{
		"-url", server.URL + "/{zoom}/{x}/{y}",
		"-bbox", "-179,-80,179,80",
		"-z", "3", "-Z", "3",
		"-o", t.TempDir(),
		"-t", "3",
		"-l", "5",
	})
	if code != ExitSuccess {
		t.Fatalf("fetch exited with %d", code)
	}
	if hits.Load() != 5 {
		t.Errorf("server hits = %d, want 5", hits.Load())
	}
}

func TestFetchRateLimited(t *testing.T) {
	server, hits := tileServer(t, http.StatusTooManyRequests)

	code := runFetch([]string{
		"-url", server.URL + "/{zoom}/{x}/{y}",
		"-bbox", "-179,-80,179,80",
		"-z", "3", "-Z", "3",
		"-o", t.TempDir(),
		"-t", "1",
	})
	if code != ExitGeneralError {
		t.Fatalf("fetch exited with %d, want %d", code, ExitGeneralError)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestFetchInvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing everything", nil},
		{"missing output", []string{"-url", "http://t.example/{zoom}/{x}/{y}", "-bbox", "-1,-1,1,1"}},
		{"bad bbox", []string{"-url", "http://t.example/{zoom}/{x}/{y}", "-bbox", "1,2", "-o", "out"}},
		{"bad workers", []string{"-url", "http://t.example/{zoom}/{x}/{y}", "-bbox", "-1,-1,1,1", "-o", "out", "-t", "0"}},
		{"unknown flag", []string{"-frobnicate"}},
		{"positional", []string{"extra"}},
		{"missing config file", []string{"-config", "/nonexistent/tilerip.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := runFetch(tt.args); code != ExitInvalidArgs {
				t.Errorf("runFetch(%v) = %d, want %d", tt.args, code, ExitInvalidArgs)
			}
		})
	}
}

func TestFetchStorageError(t *testing.T) {
	server, hits := tileServer(t, http.StatusOK)

	code := runFetch([]string{
		"-url", server.URL + "/{zoom}/{x}/{y}",
		"-bbox", "-1,-1,1,1",
		"-o", "nosuchscheme://bucket",
	})
	if code != ExitStorageError {
		t.Fatalf("fetch exited with %d, want %d", code, ExitStorageError)
	}
	if hits.Load() != 0 {
		t.Errorf("server hits = %d, want 0", hits.Load())
	}
}

func TestFetchConfigFileAndEnv(t *testing.T) {
	server, hits := tileServer(t, http.StatusOK)
	outDir := t.TempDir()

	configPath := filepath.Join(t.TempDir(), "tilerip.yaml")
	yamlContent := "url: " + server.URL + "/{zoom}/{x}/{y}.png\n" +
		"bbox: -179,-80,179,80\n" +
		"min_zoom: 3\n" +
		"max_zoom: 3\n" +
		"output: " + outDir + "\n" +
		"workers: 2\n" +
		"limit: 10\n"
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	// Environment overrides the file, flags override the environment.
	t.Setenv("TILERIP_LIMIT", "7")
	t.Setenv("TILERIP_WORKERS", "3")

	code := runFetch([]string{"-config", configPath, "-l", "4"})
	if code != ExitSuccess {
		t.Fatalf("fetch exited with %d", code)
	}
	if hits.Load() != 4 {
		t.Errorf("server hits = %d, want 4", hits.Load())
	}
}

func TestFetchMBTiles(t *testing.T) {
	server, _ := tileServer(t, http.StatusOK)
	dbPath := filepath.Join(t.TempDir(), "world.mbtiles")

	code := runFetch([]string{
		"-url", server.URL + "/{zoom}/{x}/{y}.png",
		"-bbox", "-179,-80,179,80",
		"-z", "0", "-Z", "1",
		"-o", dbPath,
		"-ext", "png",
		"-t", "2",
	})
	if code != ExitSuccess {
		t.Fatalf("fetch exited with %d", code)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open mbtiles: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM tiles").Scan(&n); err != nil {
		t.Fatalf("count tiles: %v", err)
	}
	if n != 5 {
		t.Errorf("mbtiles has %d tiles, want 5", n)
	}
}

func TestPlan(t *testing.T) {
	if code := runPlan([]string{"-b", "-179,-80,179,80", "-z", "0", "-Z", "3"}); code != ExitSuccess {
		t.Errorf("plan exited with %d", code)
	}
	if code := runPlan([]string{"-z", "0"}); code != ExitInvalidArgs {
		t.Errorf("plan without bbox exited with %d, want %d", code, ExitInvalidArgs)
	}
	if code := runPlan([]string{"-b", "1,1,-1,-1"}); code != ExitInvalidArgs {
		t.Errorf("plan with inverted bbox exited with %d, want %d", code, ExitInvalidArgs)
	}
}
