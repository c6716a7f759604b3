package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Modos y resultados usados como etiquetas.
const (
	ModeStream   = "stream"
	ModeComplete = "complete"

	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder agrupa los colectores del chat. Un *Recorder nil ignora todas las llamadas.
type Recorder struct {
	registry     *prometheus.Registry
	sends        *prometheus.CounterVec
	sendDuration *prometheus.HistogramVec
	deltas       *prometheus.CounterVec
	persistFails prometheus.Counter
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_sends_total",
			Help: "Mensajes enviados al endpoint de completions.",
		}, []string{"mode", "outcome"}),
		sendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chat_send_duration_seconds",
			Help:    "Duración de un envío completo, incluida la lectura del stream.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		deltas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_stream_lines_total",
			Help: "Líneas del stream procesadas, por tipo.",
		}, []string{"kind"}),
		persistFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_persist_failures_total",
			Help: "Escrituras al almacenamiento local que fallaron.",
		}),
	}
	r.registry.MustRegister(r.sends, r.sendDuration, r.deltas, r.persistFails)
	return r
}

func (r *Recorder) ObserveSend(mode, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.sends.WithLabelValues(mode, outcome).Inc()
	r.sendDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// AddStreamLines suma líneas procesadas de un stream por tipo (content, raw, skip).
func (r *Recorder) AddStreamLines(kind string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.deltas.WithLabelValues(kind).Add(float64(n))
}

func (r *Recorder) PersistFailed() {
	if r == nil {
		return
	}
	r.persistFails.Inc()
}

// Handler expone el registro en formato Prometheus.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
