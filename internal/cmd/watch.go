package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/otterscale/kubewatch/internal/cmd/watch"
	"github.com/otterscale/kubewatch/internal/config"
	"github.com/otterscale/kubewatch/internal/core"
)

type WatchInjector func() (*watch.Watcher, func(), error)

func NewWatchCommand(conf *config.Config, newWatcher WatchInjector) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "List and watch a Kubernetes collection and log every change",
		Example: "kubewatch watch --group=apps --resource=deployments --namespace=default --styles=callback,iterator",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := conf.Validate(); err != nil {
				return err
			}
			setupLogging(os.Stderr, conf.Debug())

			cfg, err := watchConfig(conf)
			if err != nil {
				return err
			}

			w, cleanup, err := newWatcher()
			if err != nil {
				return fmt.Errorf("failed to initialize watcher: %w", err)
			}
			defer cleanup()

			return w.Run(cmd.Context(), cfg)
		},
	}

	if err := conf.BindFlags(cmd.Flags(), config.WatchOptions); err != nil {
		return nil, err
	}

	return cmd, nil
}

func watchConfig(conf *config.Config) (watch.Config, error) {
	names := conf.WatchStyles()
	styles := make([]core.Style, 0, len(names))
	for _, name := range names {
		style, err := core.ParseStyle(name)
		if err != nil {
			return watch.Config{}, err
		}
		styles = append(styles, style)
	}

	return watch.Config{
		Styles:         styles,
		PageSize:       conf.WatchPageSize(),
		Bookmarks:      conf.WatchBookmarks(),
		BufferSize:     conf.WatchBufferSize(),
		RetryBaseDelay: conf.WatchRetryBaseDelay(),
		RetryMaxDelay:  conf.WatchRetryMaxDelay(),
		OpsAddress:     conf.OpsAddress(),
		AllowedOrigins: conf.OpsAllowedOrigins(),
	}, nil
}
