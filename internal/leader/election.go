// Package leader gates the watch controllers behind Kubernetes Lease
// leader election, so that only one of several replicas lists and
// watches at a time.
package leader

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	coordinationv1 "k8s.io/client-go/kubernetes/typed/coordination/v1"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"
)

// ErrLostLeadership is returned by Lead when the lease is lost while
// the parent context is still alive.
var ErrLostLeadership = errors.New("lost leadership")

const inClusterNamespacePath = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"

// Elector runs Kubernetes Lease leader election.
type Elector struct {
	namespace string
	leaseName string
	identity  string

	leaseDuration time.Duration
	renewDeadline time.Duration
	retryPeriod   time.Duration

	isLeader atomic.Bool

	coordClient coordinationv1.CoordinationV1Interface
	log         *slog.Logger
}

type Config struct {
	// Namespace where the Lease object lives. If empty, it will be detected.
	Namespace string
	// LeaseName is the name of the Lease object.
	LeaseName string
	// Identity is the unique identity for this participant. If empty, it will be detected.
	Identity string

	// LeaseDuration is the duration that non-leader candidates will wait to force acquire leadership.
	LeaseDuration time.Duration
	// RenewDeadline is the duration that the acting leader will retry refreshing leadership before giving up.
	RenewDeadline time.Duration
	// RetryPeriod is the duration the LeaderElector clients should wait between tries.
	RetryPeriod time.Duration
}

// NewElector returns an Elector using a clientset built from restCfg.
func NewElector(cfg Config, restCfg *rest.Config) (*Elector, error) {
	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}
	return newElector(cfg, clientset.CoordinationV1())
}

func newElector(cfg Config, coord coordinationv1.CoordinationV1Interface) (*Elector, error) {
	ns := cfg.Namespace
	if ns == "" {
		ns = detectNamespace()
	}
	if ns == "" {
		return nil, fmt.Errorf("unable to detect namespace; set POD_NAMESPACE or --leader-namespace")
	}

	leaseName := cfg.LeaseName
	if leaseName == "" {
		leaseName = "kubewatch"
	}

	identity := cfg.Identity
	if identity == "" {
		identity = detectIdentity()
	}

	e := &Elector{
		namespace:     ns,
		leaseName:     leaseName,
		identity:      identity,
		leaseDuration: orDefault(cfg.LeaseDuration, 15*time.Second),
		renewDeadline: orDefault(cfg.RenewDeadline, 10*time.Second),
		retryPeriod:   orDefault(cfg.RetryPeriod, 2*time.Second),
		coordClient:   coord,
	}
	e.log = slog.Default().With("component", "leader-elector", "lease", ns+"/"+leaseName, "identity", identity)
	return e, nil
}

func (e *Elector) IsLeader() bool {
	return e.isLeader.Load()
}

func (e *Elector) Identity() string {
	return e.identity
}

// Lead campaigns for the lease and runs fn while holding it. fn gets a
// context that is cancelled when leadership is lost. Lead returns nil
// once ctx is done, fn's error if it fails, and ErrLostLeadership if
// the lease is lost otherwise; a replica that lost its lease should
// exit rather than campaign again with stale state.
func (e *Elector) Lead(ctx context.Context, fn func(context.Context) error) error {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		runErr error
		done   = make(chan struct{})
		led    atomic.Bool
	)

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      e.leaseName,
			Namespace: e.namespace,
		},
		Client: e.coordClient,
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: e.identity,
		},
	}

	lec := leaderelection.LeaderElectionConfig{
		Lock:          lock,
		LeaseDuration: e.leaseDuration,
		RenewDeadline: e.renewDeadline,
		RetryPeriod:   e.retryPeriod,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(c context.Context) {
				defer close(done)
				led.Store(true)
				e.isLeader.Store(true)
				e.log.Info("started leading")

				runErr = fn(c)
				cancel()
			},
			OnStoppedLeading: func() {
				// client-go calls this even if the lease was never held.
				if e.isLeader.Swap(false) {
					e.log.Info("stopped leading")
				}
			},
		},
		ReleaseOnCancel: true,
		Name:            "kubewatch",
	}

	le, err := leaderelection.NewLeaderElector(lec)
	if err != nil {
		return err
	}

	e.log.Info("campaigning")
	le.Run(ctx) // blocks

	if !led.Load() {
		return nil
	}
	<-done

	switch {
	case runErr != nil:
		return runErr
	case parent.Err() != nil:
		return nil
	default:
		return ErrLostLeadership
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func detectNamespace() string {
	if ns := strings.TrimSpace(os.Getenv("POD_NAMESPACE")); ns != "" {
		return ns
	}
	// Standard location in Kubernetes pods
	if b, err := os.ReadFile(inClusterNamespacePath); err == nil {
		return strings.TrimSpace(string(b))
	}
	return ""
}

func detectIdentity() string {
	if n := strings.TrimSpace(os.Getenv("POD_NAME")); n != "" {
		return n
	}
	if h, err := os.Hostname(); err == nil && strings.TrimSpace(h) != "" {
		return strings.TrimSpace(h) + "-" + shortRandom()
	}
	return shortRandom()
}

func shortRandom() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf) // best-effort
	return base64.RawURLEncoding.EncodeToString(buf)
}
