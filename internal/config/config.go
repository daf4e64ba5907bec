package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Values accepted by watch.bookmarks.
const (
	BookmarksAuto  = "auto"
	BookmarksTrue  = "true"
	BookmarksFalse = "false"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	v *viper.Viper
}

func New() (*Config, error) {
	v := viper.New()

	// default values
	for _, o := range WatchOptions {
		v.SetDefault(o.Key, o.Default)
	}

	// load config from file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/kubewatch/")

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// load config from environment variables
	v.SetEnvPrefix("KUBEWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Config{v: v}, nil
}

func (c *Config) BindFlags(fs *pflag.FlagSet, options []Option) error {
	for _, o := range options {
		switch v := o.Default.(type) {
		case string:
			fs.String(o.Flag, v, o.Description)
		case int:
			fs.Int(o.Flag, v, o.Description)
		case bool:
			fs.Bool(o.Flag, v, o.Description)
		case []string:
			fs.StringSlice(o.Flag, v, o.Description)
		case time.Duration:
			fs.Duration(o.Flag, v, o.Description)
		default:
			return fmt.Errorf("unsupported flag type for key: %s", o.Key)
		}

		if err := c.v.BindPFlag(o.Key, fs.Lookup(o.Flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", o.Flag, err)
		}
	}

	return nil
}

func (c *Config) WatchGroup() string {
	return c.v.GetString(keyWatchGroup) // KUBEWATCH_WATCH_GROUP
}

func (c *Config) WatchVersion() string {
	return c.v.GetString(keyWatchVersion) // KUBEWATCH_WATCH_VERSION
}

func (c *Config) WatchResource() string {
	return c.v.GetString(keyWatchResource) // KUBEWATCH_WATCH_RESOURCE
}

func (c *Config) WatchNamespace() string {
	return c.v.GetString(keyWatchNamespace) // KUBEWATCH_WATCH_NAMESPACE
}

func (c *Config) WatchLabelSelector() string {
	return c.v.GetString(keyWatchLabelSelector) // KUBEWATCH_WATCH_LABEL_SELECTOR
}

func (c *Config) WatchFieldSelector() string {
	return c.v.GetString(keyWatchFieldSelector) // KUBEWATCH_WATCH_FIELD_SELECTOR
}

func (c *Config) WatchPageSize() int64 {
	return c.v.GetInt64(keyWatchPageSize) // KUBEWATCH_WATCH_PAGE_SIZE
}

func (c *Config) WatchBookmarks() string {
	return strings.ToLower(c.v.GetString(keyWatchBookmarks)) // KUBEWATCH_WATCH_BOOKMARKS
}

func (c *Config) WatchStyles() []string {
	return splitList(c.v.GetStringSlice(keyWatchStyles)) // KUBEWATCH_WATCH_STYLES
}

func (c *Config) WatchBufferSize() int {
	return c.v.GetInt(keyWatchBufferSize) // KUBEWATCH_WATCH_BUFFER_SIZE
}

func (c *Config) WatchRetryBaseDelay() time.Duration {
	return c.v.GetDuration(keyWatchRetryBaseDelay) // KUBEWATCH_WATCH_RETRY_BASE_DELAY
}

func (c *Config) WatchRetryMaxDelay() time.Duration {
	return c.v.GetDuration(keyWatchRetryMaxDelay) // KUBEWATCH_WATCH_RETRY_MAX_DELAY
}

func (c *Config) WatchKubeconfig() string {
	return c.v.GetString(keyWatchKubeconfig) // KUBEWATCH_WATCH_KUBECONFIG
}

func (c *Config) OpsAddress() string {
	return c.v.GetString(keyOpsAddress) // KUBEWATCH_OPS_ADDRESS
}

func (c *Config) OpsAllowedOrigins() []string {
	return splitList(c.v.GetStringSlice(keyOpsAllowedOrigins)) // KUBEWATCH_OPS_ALLOWED_ORIGINS
}

func (c *Config) LeaderEnabled() bool {
	return c.v.GetBool(keyLeaderEnabled) // KUBEWATCH_LEADER_ENABLED
}

func (c *Config) LeaderNamespace() string {
	return c.v.GetString(keyLeaderNamespace) // KUBEWATCH_LEADER_NAMESPACE
}

func (c *Config) LeaderLeaseName() string {
	return c.v.GetString(keyLeaderLeaseName) // KUBEWATCH_LEADER_LEASE_NAME
}

func (c *Config) LeaderIdentity() string {
	return c.v.GetString(keyLeaderIdentity) // KUBEWATCH_LEADER_IDENTITY
}

func (c *Config) Debug() bool {
	return c.v.GetBool(keyDebug) // KUBEWATCH_DEBUG
}

// splitList accepts both repeated values and a comma-separated string,
// which is how a list arrives from an environment variable.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// settings is the validated view of the watch configuration.
type settings struct {
	Version        string        `validate:"required"`
	Resource       string        `validate:"required"`
	PageSize       int64         `validate:"gte=0"`
	Bookmarks      string        `validate:"oneof=auto true false"`
	Styles         []string      `validate:"min=1,unique,dive,oneof=callback pull iterator"`
	BufferSize     int           `validate:"gte=1"`
	RetryBaseDelay time.Duration `validate:"gte=0"`
	RetryMaxDelay  time.Duration `validate:"gtefield=RetryBaseDelay"`
	OpsAddress     string        `validate:"omitempty,hostname_port"`
	LeaseName      string        `validate:"required_if=LeaderEnabled true,omitempty,hostname_rfc1123"`
	LeaderEnabled  bool
}

// Validate checks the loaded configuration and reports every invalid
// field at once.
func (c *Config) Validate() error {
	s := settings{
		Version:        c.WatchVersion(),
		Resource:       c.WatchResource(),
		PageSize:       c.WatchPageSize(),
		Bookmarks:      c.WatchBookmarks(),
		Styles:         c.WatchStyles(),
		BufferSize:     c.WatchBufferSize(),
		RetryBaseDelay: c.WatchRetryBaseDelay(),
		RetryMaxDelay:  c.WatchRetryMaxDelay(),
		OpsAddress:     c.OpsAddress(),
		LeaseName:      c.LeaderLeaseName(),
		LeaderEnabled:  c.LeaderEnabled(),
	}

	err := validator.New().Struct(s)
	if err == nil {
		return nil
	}

	var valErrors validator.ValidationErrors
	if !errors.As(err, &valErrors) {
		return err
	}

	msgs := make([]string, 0, len(valErrors))
	for _, valErr := range valErrors {
		msgs = append(msgs, fmt.Sprintf("%s: failed on the '%s' tag (value %v)", valErr.Namespace(), valErr.Tag(), valErr.Value()))
	}
	return fmt.Errorf("%w:\n%s", ErrInvalid, strings.Join(msgs, "\n"))
}
