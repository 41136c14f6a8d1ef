// Package metrics defines the prometheus collectors exported by the agent.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace is the namespace all metrics are defined under.
const Namespace = "fimsync"

const subsystem = "sync"

// Outcome labels for inbound commands.
const (
	OutcomeHandled   = "handled"
	OutcomeMalformed = "malformed"
	OutcomeStale     = "stale"
	OutcomeUnknown   = "unknown"
)

// NewCounter creates a CounterVec under the global namespace.
func NewCounter(name, subsystem, help string, labels []string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help}, labels)
}

// NewGauge creates a GaugeVec under the global namespace.
func NewGauge(name, subsystem, help string, labels []string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(prometheus.GaugeOpts{Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help}, labels)
}

var (
	messagesSent = NewCounter(
		"messages_sent_total", subsystem,
		"Outbound protocol messages by type",
		[]string{"type"},
	)
	commandsReceived = NewCounter(
		"commands_received_total", subsystem,
		"Inbound collector commands by command and outcome",
		[]string{"command", "outcome"},
	)
	pushDropped = NewCounter(
		"push_dropped_total", subsystem,
		"Inbound messages dropped before reaching the worker",
		[]string{"reason"},
	)
	idCorrections = NewCounter(
		"id_corrections_total", subsystem,
		"Times the collector lowered the sync id",
		nil,
	)
	batchesSent = NewCounter(
		"batches_sent_total", subsystem,
		"Batches shipped to the collector by result",
		[]string{"result"},
	)
	entries = NewGauge(
		"entries", "store",
		"Entries in the local inventory",
		nil,
	)
	queueLength = NewGauge(
		"queue_length", subsystem,
		"Inbound messages waiting for the worker",
		nil,
	)
)

func MessageSent(msgType string) { messagesSent.WithLabelValues(msgType).Inc() }

func CommandReceived(command, outcome string) {
	commandsReceived.WithLabelValues(command, outcome).Inc()
}

func PushDropped(reason string) { pushDropped.WithLabelValues(reason).Inc() }

func IDCorrected() { idCorrections.WithLabelValues().Inc() }

func BatchSent(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	batchesSent.WithLabelValues(result).Inc()
}

func SetEntries(n int) { entries.WithLabelValues().Set(float64(n)) }

func SetQueueLength(n int) { queueLength.WithLabelValues().Set(float64(n)) }

// Serve exposes the default registry on addr until ctx ends.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
