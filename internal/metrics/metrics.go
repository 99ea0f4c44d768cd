// Package metrics exposes the driver's frame and error counters both as
// Prometheus series and as cheap atomic mirrors for in-process logging.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dirtcrusher/cansim/internal/logging"
)

// Prometheus counters
var (
	RxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cansim_rx_frames_total",
		Help: "Total CAN frames taken off the transport by the intake loop.",
	})
	TxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cansim_tx_frames_total",
		Help: "Total CAN frames written to the transport.",
	})
	RxDroppedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cansim_rx_dropped_frames_total",
		Help: "Total received frames shed because the RX buffer was full.",
	})
	MQTTTxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cansim_mqtt_tx_frames_total",
		Help: "Total frames published to the MQTT broker by can-tap.",
	})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cansim_errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cansim_build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrPoll        = "poll"
	ErrRead        = "transport_read"
	ErrWrite       = "transport_write"
	ErrStart       = "start"
	ErrMQTTPublish = "mqtt_publish"
	ErrMQTTOver    = "mqtt_tx_overflow"
)

// StartHTTP serves Prometheus metrics at /metrics plus a /ready probe.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for easy logging (avoid Prometheus scraping in-process)
var (
	localRx     uint64
	localTx     uint64
	localRxDrop uint64
	localMQTTTx uint64
	localErrors uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	Rx      uint64
	Tx      uint64
	RxDrops uint64
	MQTTTx  uint64
	Errors  uint64 // sum across error labels
}

func Snap() Snapshot {
	return Snapshot{
		Rx:      atomic.LoadUint64(&localRx),
		Tx:      atomic.LoadUint64(&localTx),
		RxDrops: atomic.LoadUint64(&localRxDrop),
		MQTTTx:  atomic.LoadUint64(&localMQTTTx),
		Errors:  atomic.LoadUint64(&localErrors),
	}
}

// Wrapper helpers to keep call sites simple.

// IncRx counts one frame taken off the transport.
func IncRx() {
	RxFrames.Inc()
	atomic.AddUint64(&localRx, 1)
}

// IncTx counts one frame written to the transport.
func IncTx() {
	TxFrames.Inc()
	atomic.AddUint64(&localTx, 1)
}

// IncRxDrop counts one frame shed on RX buffer saturation.
func IncRxDrop() {
	RxDroppedFrames.Inc()
	atomic.AddUint64(&localRxDrop, 1)
}

// IncMQTTTx counts one frame published to the broker.
func IncMQTTTx() {
	MQTTTxFrames.Inc()
	atomic.AddUint64(&localMQTTTx, 1)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	// Pre-register the error label series so the first error does not pay
	// registration latency.
	for _, lbl := range []string{
		ErrPoll, ErrRead, ErrWrite, ErrStart, ErrMQTTPublish, ErrMQTTOver,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil { // if not set yet, treat as ready so metrics endpoint doesn't flap
		return true
	}
	return fn()
}
