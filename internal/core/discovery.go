package core

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"k8s.io/apimachinery/pkg/version"
)

// minBookmarkVersion is the first Kubernetes release that serves
// BOOKMARK events by default.
var minBookmarkVersion = semver.MustParse("v1.17.0")

// ServerVersioner reports the version of the API server.
type ServerVersioner interface {
	ServerVersion(ctx context.Context) (*version.Info, error)
}

// BookmarksSupported reports whether the API server is new enough to
// send BOOKMARK events.
func BookmarksSupported(ctx context.Context, sv ServerVersioner) (bool, error) {
	info, err := sv.ServerVersion(ctx)
	if err != nil {
		return false, err
	}

	v, err := semver.NewVersion(info.GitVersion)
	if err != nil {
		return false, fmt.Errorf("parse server version %q: %w", info.GitVersion, err)
	}

	return v.GreaterThanEqual(minBookmarkVersion), nil
}
