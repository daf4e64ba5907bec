package watch

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/grpcreflect"
	"connectrpc.com/otelconnect"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// syncer is the part of a controller the health check looks at.
type syncer interface {
	Name() string
	Synced() bool
}

// Handler serves the operational endpoints: gRPC health and
// reflection, a plain readiness probe and Prometheus metrics.
type Handler struct {
	checker *SyncChecker
}

// NewHandler returns a Handler with an empty SyncChecker.
func NewHandler() *Handler {
	return &Handler{
		checker: NewSyncChecker(),
	}
}

// Track adds a controller to the health check.
func (h *Handler) Track(s syncer) {
	h.checker.Track(s)
}

// Mount registers all handlers and observability tools to the mux. It
// installs the global meter provider, so it must run before any
// controller records metrics.
func (h *Handler) Mount(mux *http.ServeMux) error {
	otelInterceptor, err := otelconnect.NewInterceptor()
	if err != nil {
		return err
	}
	interceptors := connect.WithInterceptors(otelInterceptor)

	// gRPC Reflection
	reflector := grpcreflect.NewStaticReflector(grpchealth.HealthV1ServiceName)
	mux.Handle(grpcreflect.NewHandlerV1(reflector, interceptors))
	mux.Handle(grpcreflect.NewHandlerV1Alpha(reflector, interceptors))

	// gRPC Health Check
	mux.Handle(grpchealth.NewHandler(h.checker, interceptors))
	mux.HandleFunc("/readyz", h.readyz)

	// Prometheus Metrics
	exporter, err := prometheus.New()
	if err != nil {
		return err
	}
	otel.SetMeterProvider(metric.NewMeterProvider(metric.WithReader(exporter)))
	mux.Handle("/metrics", promhttp.Handler())

	return nil
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	resp, err := h.checker.Check(r.Context(), &grpchealth.CheckRequest{})
	if err != nil || resp.Status != grpchealth.StatusServing {
		http.Error(w, "not synced", http.StatusServiceUnavailable)
		return
	}
	fmt.Fprintln(w, "ok")
}

// SyncChecker is a grpchealth.Checker that reports SERVING once every
// tracked controller holds a resource version. A request naming a
// controller reports on that controller alone.
type SyncChecker struct {
	mu      sync.RWMutex
	syncers []syncer
	byName  map[string]syncer
}

// NewSyncChecker returns a SyncChecker tracking nothing. With nothing
// tracked it reports NOT_SERVING.
func NewSyncChecker() *SyncChecker {
	return &SyncChecker{
		byName: make(map[string]syncer),
	}
}

// Track adds s to the checker.
func (c *SyncChecker) Track(s syncer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncers = append(c.syncers, s)
	c.byName[s.Name()] = s
}

var _ grpchealth.Checker = (*SyncChecker)(nil)

// Check implements grpchealth.Checker.
func (c *SyncChecker) Check(_ context.Context, req *grpchealth.CheckRequest) (*grpchealth.CheckResponse, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if req.Service != "" {
		s, ok := c.byName[req.Service]
		if !ok {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("unknown controller %q", req.Service))
		}
		return &grpchealth.CheckResponse{Status: status(s.Synced())}, nil
	}

	if len(c.syncers) == 0 {
		return &grpchealth.CheckResponse{Status: grpchealth.StatusNotServing}, nil
	}
	for _, s := range c.syncers {
		if !s.Synced() {
			return &grpchealth.CheckResponse{Status: grpchealth.StatusNotServing}, nil
		}
	}
	return &grpchealth.CheckResponse{Status: grpchealth.StatusServing}, nil
}

func status(synced bool) grpchealth.Status {
	if synced {
		return grpchealth.StatusServing
	}
	return grpchealth.StatusNotServing
}
