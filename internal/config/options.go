package config

import (
	"strings"
	"time"
)

// Option describes a single configuration entry: its viper key, the
// corresponding CLI flag name, the compiled default, and a
// human-readable description shown in --help output.
type Option struct {
	Key         string
	Flag        string
	Default     any
	Description string
}

// WatchOptions defines the configuration entries of the watch
// command. Each entry is registered as a viper default and a CLI flag.
var WatchOptions = []Option{
	{Key: keyWatchGroup, Flag: toFlag(keyWatchGroup), Default: "", Description: "API group of the watched resource, empty for the core group"},
	{Key: keyWatchVersion, Flag: toFlag(keyWatchVersion), Default: "v1", Description: "API version of the watched resource"},
	{Key: keyWatchResource, Flag: toFlag(keyWatchResource), Default: "pods", Description: "Plural resource name to watch"},
	{Key: keyWatchNamespace, Flag: toFlag(keyWatchNamespace), Default: "", Description: "Namespace to watch, empty for all namespaces"},
	{Key: keyWatchLabelSelector, Flag: toFlag(keyWatchLabelSelector), Default: "", Description: "Label selector applied to list and watch"},
	{Key: keyWatchFieldSelector, Flag: toFlag(keyWatchFieldSelector), Default: "", Description: "Field selector applied to list and watch"},
	{Key: keyWatchPageSize, Flag: toFlag(keyWatchPageSize), Default: 10, Description: "List page size"},
	{Key: keyWatchBookmarks, Flag: toFlag(keyWatchBookmarks), Default: BookmarksAuto, Description: "Request BOOKMARK events: auto, true or false"},
	{Key: keyWatchStyles, Flag: toFlag(keyWatchStyles), Default: []string{"callback"}, Description: "Consumption styles to run, one controller each: callback, pull, iterator"},
	{Key: keyWatchBufferSize, Flag: toFlag(keyWatchBufferSize), Default: 4096, Description: "Watch stream read buffer size in bytes"},
	{Key: keyWatchRetryBaseDelay, Flag: toFlag(keyWatchRetryBaseDelay), Default: time.Duration(0), Description: "Initial reconnect delay after a failure, 0 reconnects immediately"},
	{Key: keyWatchRetryMaxDelay, Flag: toFlag(keyWatchRetryMaxDelay), Default: 30 * time.Second, Description: "Maximum reconnect delay"},
	{Key: keyWatchKubeconfig, Flag: toFlag(keyWatchKubeconfig), Default: "", Description: "Path to a kubeconfig, empty for in-cluster config"},
	{Key: keyOpsAddress, Flag: toFlag(keyOpsAddress), Default: ":8298", Description: "Metrics and health listen address, empty to disable"},
	{Key: keyOpsAllowedOrigins, Flag: toFlag(keyOpsAllowedOrigins), Default: []string{}, Description: "Allowed CORS origins of the ops endpoint"},
	{Key: keyLeaderEnabled, Flag: toFlag(keyLeaderEnabled), Default: false, Description: "Run controllers only while holding the leader Lease"},
	{Key: keyLeaderNamespace, Flag: toFlag(keyLeaderNamespace), Default: "", Description: "Namespace of the leader Lease, empty to detect"},
	{Key: keyLeaderLeaseName, Flag: toFlag(keyLeaderLeaseName), Default: "kubewatch", Description: "Name of the leader Lease"},
	{Key: keyLeaderIdentity, Flag: toFlag(keyLeaderIdentity), Default: "", Description: "Leader election identity, empty to use the pod name"},
	{Key: keyDebug, Flag: toFlag(keyDebug), Default: false, Description: "Enable debug logging"},
}

// toFlag converts a viper key like "watch.retry.base_delay" into a CLI
// flag like "retry-base-delay" by lower-casing, replacing dots and
// underscores with hyphens, and stripping the "watch-" prefix.
func toFlag(key string) string {
	flag := strings.ToLower(key)
	flag = strings.ReplaceAll(flag, ".", "-")
	flag = strings.ReplaceAll(flag, "_", "-")
	flag = strings.TrimPrefix(flag, "watch-")
	return flag
}
