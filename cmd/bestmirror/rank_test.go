package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BadgerOps/bestmirror/internal/config"
)

const releasePath = "/fedora/linux/releases/40/Everything/x86_64/os/"

// newMirrorServer serves a mirror list naming two mirrors on itself: "good"
// serves a small boot image and "missing" answers 404.
func newMirrorServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		switch {
		case r.URL.Path == "/mirrorlist":
			if r.URL.Query().Get("repo") != "fedora-40" || r.URL.Query().Get("arch") != "x86_64" {
				http.Error(w, "unknown repo", http.StatusNotFound)
				return
			}
			fmt.Fprintf(w, "# repo = fedora-40 arch = x86_64\n%s/good%s\n%s/missing%s\n", base, releasePath, base, releasePath)
		case r.URL.Path == "/good"+releasePath+"images/boot.iso":
			w.Write(make([]byte, 256*1024))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bestmirror.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func executeRoot(ctx context.Context, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestRankRunEndToEnd(t *testing.T) {
	srv := newMirrorServer(t)
	cfgFile := writeConfig(t, "probe:\n  connect_timeout: 2\n")
	promFile := filepath.Join(t.TempDir(), "bestmirror.prom")

	out, errOut, err := executeRoot(context.Background(),
		"--config", cfgFile,
		"--log-level", "error",
		"--mirrors-url", srv.URL+"/mirrorlist",
		"--release", "40",
		"--arch", "x86_64",
		"--download-timeout", "2",
		"--metrics-textfile", promFile,
	)
	if err != nil {
		t.Fatalf("execute returned error: %v", err)
	}

	if !strings.HasPrefix(out, "Testing 2 mirrors\n") {
		t.Errorf("expected mirror count header, got: %s", out)
	}
	wantURL := "baseurl=" + srv.URL + "/good/fedora/linux/releases/$releasever/Everything/$basearch/os/"
	if strings.Count(out, wantURL) != 2 {
		t.Errorf("expected templated URL once per ranking, got: %s", out)
	}
	if strings.Contains(out, "/missing/") {
		t.Errorf("failed mirror must not be ranked, got: %s", out)
	}
	meanIdx := strings.Index(out, "Top mirrors by mean download rate:")
	peakIdx := strings.Index(out, "Top mirrors by peak download rate:")
	if meanIdx < 0 || peakIdx < meanIdx {
		t.Errorf("expected mean ranking before peak ranking, got: %s", out)
	}

	errLines := strings.Split(strings.TrimSpace(errOut), "\n")
	if len(errLines) != 1 || !strings.HasPrefix(errLines[0], "ERROR: "+srv.URL+"/missing") {
		t.Errorf("expected one error line for the missing mirror, got: %q", errOut)
	}

	data, err := os.ReadFile(promFile)
	if err != nil {
		t.Fatalf("reading metrics textfile: %v", err)
	}
	if !strings.Contains(string(data), "bestmirror_probe_failures_total 1") {
		t.Errorf("expected one recorded failure, got:\n%s", data)
	}
}

func TestRankRunMirrorListFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := executeRoot(context.Background(),
		"--config", writeConfig(t, "{}\n"),
		"--log-level", "error",
		"--mirrors-url", srv.URL+"/mirrorlist",
		"--release", "40",
		"--arch", "x86_64",
	)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected mirror list error, got %v", err)
	}
}

func TestRankRunInterrupted(t *testing.T) {
	srv := newMirrorServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := executeRoot(ctx,
		"--config", writeConfig(t, "{}\n"),
		"--log-level", "error",
		"--mirrors-url", srv.URL+"/mirrorlist",
		"--release", "40",
		"--arch", "x86_64",
	)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled so main exits quietly, got %v", err)
	}
}

func TestRankRunNotRedHat(t *testing.T) {
	osRelease := filepath.Join(t.TempDir(), "os-release")
	if err := os.WriteFile(osRelease, []byte("ID=debian\nVERSION_ID=\"12\"\n"), 0644); err != nil {
		t.Fatalf("writing os-release: %v", err)
	}
	cfgFile := writeConfig(t, "discovery:\n  os_release_path: "+osRelease+"\n  mirrors_url: http://127.0.0.1:1/mirrorlist\n")

	_, _, err := executeRoot(context.Background(), "--config", cfgFile, "--log-level", "error")
	if err == nil || !strings.Contains(err.Error(), "detecting Fedora release") {
		t.Fatalf("expected release detection error, got %v", err)
	}
}

func TestConfigShowAppliesOverrides(t *testing.T) {
	out, _, err := executeRoot(context.Background(),
		"config", "show",
		"--config", writeConfig(t, "discovery:\n  max_mirrors: 4\n"),
		"--log-level", "error",
		"--download-timeout", "7",
	)
	if err != nil {
		t.Fatalf("config show returned error: %v", err)
	}
	if !strings.Contains(out, "download_timeout: 7") {
		t.Errorf("expected flag override in output, got: %s", out)
	}
	if !strings.Contains(out, "max_mirrors: 4") {
		t.Errorf("expected config file value in output, got: %s", out)
	}
}

func TestInvalidFlagValue(t *testing.T) {
	_, _, err := executeRoot(context.Background(),
		"config", "show",
		"--config", writeConfig(t, "{}\n"),
		"--log-level", "error",
		"--download-timeout", "0",
	)
	if err == nil || !strings.Contains(err.Error(), "download_timeout") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTruncateMirrors(t *testing.T) {
	mirrors := []string{"a", "b", "c"}
	tests := []struct {
		limit int
		want  int
	}{
		{0, 3},
		{-1, 3},
		{2, 2},
		{5, 3},
	}
	for _, tt := range tests {
		if got := truncateMirrors(mirrors, tt.limit); len(got) != tt.want {
			t.Errorf("truncateMirrors(limit=%d) kept %d, want %d", tt.limit, len(got), tt.want)
		}
	}
}

func TestResolvePlatformOverrides(t *testing.T) {
	version, machine, err := resolvePlatform(config.DiscoveryConfig{Release: "41", Arch: "ppc64le"})
	if err != nil {
		t.Fatalf("resolvePlatform() error = %v", err)
	}
	if version != "41" || machine != "ppc64le" {
		t.Errorf("resolvePlatform() = %s/%s, want 41/ppc64le", version, machine)
	}
}

func TestResolvePlatformFromOSRelease(t *testing.T) {
	osRelease := filepath.Join(t.TempDir(), "os-release")
	content := "ID=fedora\nVERSION_ID=39\nREDHAT_SUPPORT_PRODUCT=\"Fedora\"\n"
	if err := os.WriteFile(osRelease, []byte(content), 0644); err != nil {
		t.Fatalf("writing os-release: %v", err)
	}

	version, _, err := resolvePlatform(config.DiscoveryConfig{OSReleasePath: osRelease, Arch: "x86_64"})
	if err != nil {
		t.Fatalf("resolvePlatform() error = %v", err)
	}
	if version != "39" {
		t.Errorf("version = %q, want 39", version)
	}
}
