// Package config provides unified configuration loading from files,
// environment variables, and CLI flags using viper and pflag.
//
// Resolution order (highest wins):
//  1. CLI flags
//  2. Environment variables (prefix KUBEWATCH_)
//  3. Config file (config.yaml in . or /etc/kubewatch/)
//  4. Compiled defaults
package config

// Viper keys for the watched collection and the controllers.
const (
	keyWatchGroup          = "watch.group"
	keyWatchVersion        = "watch.version"
	keyWatchResource       = "watch.resource"
	keyWatchNamespace      = "watch.namespace"
	keyWatchLabelSelector  = "watch.label_selector"
	keyWatchFieldSelector  = "watch.field_selector"
	keyWatchPageSize       = "watch.page_size"
	keyWatchBookmarks      = "watch.bookmarks"
	keyWatchStyles         = "watch.styles"
	keyWatchBufferSize     = "watch.buffer_size"
	keyWatchRetryBaseDelay = "watch.retry.base_delay"
	keyWatchRetryMaxDelay  = "watch.retry.max_delay"
	keyWatchKubeconfig     = "watch.kubeconfig"
)

// Viper keys for the operations endpoint.
const (
	keyOpsAddress        = "ops.address"
	keyOpsAllowedOrigins = "ops.allowed_origins"
)

const keyDebug = "debug"

// Viper keys for Lease leader election.
const (
	keyLeaderEnabled   = "leader.enabled"
	keyLeaderNamespace = "leader.namespace"
	keyLeaderLeaseName = "leader.lease_name"
	keyLeaderIdentity  = "leader.identity"
)
