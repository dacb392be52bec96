// Package telemetry counts transform calls and exposes them to Prometheus.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trikins/standalone/kinematics"
)

// Metrics holds the transform counters
type Metrics struct {
	Transforms *prometheus.CounterVec
	NonFinite  prometheus.Counter
}

// NewMetrics creates and registers the counters
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Transforms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trikins",
			Name:      "transforms_total",
			Help:      "Kinematic transforms performed, by direction.",
		}, []string{"direction"}),
		NonFinite: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trikins",
			Name:      "nonfinite_poses_total",
			Help:      "Forward or home transforms that produced a NaN or infinite position.",
		}),
	}
	for _, c := range []prometheus.Collector{m.Transforms, m.NonFinite} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

type instrumented struct {
	kinematics.Kinematics

	forward   prometheus.Counter
	inverse   prometheus.Counter
	home      prometheus.Counter
	nonFinite prometheus.Counter
}

// Instrument wraps k so every call is counted. Counters are resolved up
// front so the wrapped calls do not allocate.
func Instrument(k kinematics.Kinematics, m *Metrics) kinematics.Kinematics {
	return &instrumented{
		Kinematics: k,
		forward:    m.Transforms.WithLabelValues("forward"),
		inverse:    m.Transforms.WithLabelValues("inverse"),
		home:       m.Transforms.WithLabelValues("home"),
		nonFinite:  m.NonFinite,
	}
}

func (i *instrumented) Forward(joints *kinematics.Joints, pose *kinematics.Pose, fflags kinematics.ForwardFlags, iflags *kinematics.InverseFlags) kinematics.Status {
	st := i.Kinematics.Forward(joints, pose, fflags, iflags)
	i.forward.Inc()
	if !pose.Finite() {
		i.nonFinite.Inc()
	}
	return st
}

func (i *instrumented) Inverse(pose *kinematics.Pose, joints *kinematics.Joints, iflags kinematics.InverseFlags, fflags *kinematics.ForwardFlags) kinematics.Status {
	st := i.Kinematics.Inverse(pose, joints, iflags, fflags)
	i.inverse.Inc()
	return st
}

// Home calls the wrapped Home directly so it is counted once, as a home.
func (i *instrumented) Home(pose *kinematics.Pose, joints *kinematics.Joints, fflags *kinematics.ForwardFlags, iflags *kinematics.InverseFlags) kinematics.Status {
	st := i.Kinematics.Home(pose, joints, fflags, iflags)
	i.home.Inc()
	if !pose.Finite() {
		i.nonFinite.Inc()
	}
	return st
}

// Expose serves /metrics from g on port until ctx is done
func Expose(ctx context.Context, port int, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
