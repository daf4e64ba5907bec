package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func newTestConfig(t *testing.T, args ...string) *Config {
	t.Helper()

	conf, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := conf.BindFlags(fs, WatchOptions); err != nil {
		t.Fatalf("BindFlags() error = %v", err)
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return conf
}

func TestToFlag(t *testing.T) {
	tests := map[string]string{
		keyWatchResource:       "resource",
		keyWatchRetryBaseDelay: "retry-base-delay",
		keyWatchLabelSelector:  "label-selector",
		keyOpsAddress:          "ops-address",
		keyLeaderLeaseName:     "leader-lease-name",
		keyDebug:               "debug",
	}
	for key, want := range tests {
		if got := toFlag(key); got != want {
			t.Errorf("toFlag(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestDefaults(t *testing.T) {
	conf := newTestConfig(t)

	if conf.WatchVersion() != "v1" || conf.WatchResource() != "pods" || conf.WatchGroup() != "" {
		t.Errorf("target = %q/%q/%q, want core v1 pods", conf.WatchGroup(), conf.WatchVersion(), conf.WatchResource())
	}
	if conf.WatchPageSize() != 10 {
		t.Errorf("WatchPageSize() = %d, want 10", conf.WatchPageSize())
	}
	if conf.WatchBookmarks() != BookmarksAuto {
		t.Errorf("WatchBookmarks() = %q, want %q", conf.WatchBookmarks(), BookmarksAuto)
	}
	if diff := cmp.Diff([]string{"callback"}, conf.WatchStyles()); diff != "" {
		t.Errorf("WatchStyles() mismatch (-want +got):\n%s", diff)
	}
	if conf.WatchBufferSize() != 4096 {
		t.Errorf("WatchBufferSize() = %d, want 4096", conf.WatchBufferSize())
	}
	if conf.WatchRetryBaseDelay() != 0 || conf.WatchRetryMaxDelay() != 30*time.Second {
		t.Errorf("retry = %v..%v, want 0..30s", conf.WatchRetryBaseDelay(), conf.WatchRetryMaxDelay())
	}
	if conf.LeaderEnabled() || conf.LeaderLeaseName() != "kubewatch" {
		t.Errorf("leader = %v/%q, want disabled kubewatch", conf.LeaderEnabled(), conf.LeaderLeaseName())
	}
	if err := conf.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestFlagsOverrideDefaults(t *testing.T) {
	conf := newTestConfig(t,
		"--group=apps",
		"--resource=deployments",
		"--namespace=prod",
		"--styles=pull,iterator",
		"--retry-base-delay=100ms",
		"--ops-address=127.0.0.1:9000",
	)

	if conf.WatchGroup() != "apps" || conf.WatchResource() != "deployments" || conf.WatchNamespace() != "prod" {
		t.Errorf("target = %s/%s in %s", conf.WatchGroup(), conf.WatchResource(), conf.WatchNamespace())
	}
	if diff := cmp.Diff([]string{"pull", "iterator"}, conf.WatchStyles()); diff != "" {
		t.Errorf("WatchStyles() mismatch (-want +got):\n%s", diff)
	}
	if conf.WatchRetryBaseDelay() != 100*time.Millisecond {
		t.Errorf("WatchRetryBaseDelay() = %v", conf.WatchRetryBaseDelay())
	}
	if conf.OpsAddress() != "127.0.0.1:9000" {
		t.Errorf("OpsAddress() = %q", conf.OpsAddress())
	}
}

func TestEnvironment(t *testing.T) {
	t.Setenv("KUBEWATCH_WATCH_RESOURCE", "configmaps")
	t.Setenv("KUBEWATCH_WATCH_STYLES", "callback,pull")
	t.Setenv("KUBEWATCH_WATCH_BOOKMARKS", "FALSE")

	conf := newTestConfig(t)

	if conf.WatchResource() != "configmaps" {
		t.Errorf("WatchResource() = %q, want configmaps", conf.WatchResource())
	}
	if diff := cmp.Diff([]string{"callback", "pull"}, conf.WatchStyles()); diff != "" {
		t.Errorf("WatchStyles() mismatch (-want +got):\n%s", diff)
	}
	if conf.WatchBookmarks() != BookmarksFalse {
		t.Errorf("WatchBookmarks() = %q, want false", conf.WatchBookmarks())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantField string
	}{
		{name: "missing resource", args: []string{"--resource="}, wantField: "Resource"},
		{name: "missing version", args: []string{"--version="}, wantField: "Version"},
		{name: "negative page size", args: []string{"--page-size=-1"}, wantField: "PageSize"},
		{name: "unknown style", args: []string{"--styles=push"}, wantField: "Styles"},
		{name: "duplicate style", args: []string{"--styles=pull,pull"}, wantField: "Styles"},
		{name: "bad bookmarks", args: []string{"--bookmarks=sometimes"}, wantField: "Bookmarks"},
		{name: "zero buffer", args: []string{"--buffer-size=0"}, wantField: "BufferSize"},
		{name: "max below base", args: []string{"--retry-base-delay=10s", "--retry-max-delay=1s"}, wantField: "RetryMaxDelay"},
		{name: "bad ops address", args: []string{"--ops-address=nonsense"}, wantField: "OpsAddress"},
		{name: "leader without lease", args: []string{"--leader-enabled", "--leader-lease-name="}, wantField: "LeaseName"},
		{name: "bad lease name", args: []string{"--leader-lease-name=Not_A_Name"}, wantField: "LeaseName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestConfig(t, tt.args...).Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("Validate() = %v, want it to name %s", err, tt.wantField)
			}
		})
	}
}

func TestValidate_EmptyOpsAddressDisables(t *testing.T) {
	if err := newTestConfig(t, "--ops-address=").Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
