package emberplus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ambient Prometheus instrumentation for a Server. It is
// optional: a Server with a nil Metrics simply does not record anything,
// so tests and embedders that do not care about observability never pay
// for a registry.
type Metrics struct {
	connectionsAccepted prometheus.Counter
	connectionsActive   prometheus.Gauge
	requestsHandled     *prometheus.CounterVec
	dispatchErrors      *prometheus.CounterVec
	fanoutMessages      prometheus.Counter
}

// NewMetrics registers this server's metrics against registerer (typically
// prometheus.DefaultRegisterer).
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		connectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "emberplus",
			Name:      "connections_accepted_total",
			Help:      "Total number of accepted client connections.",
		}),
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "emberplus",
			Name:      "connections_active",
			Help:      "Number of currently connected clients.",
		}),
		requestsHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emberplus",
			Name:      "requests_handled_total",
			Help:      "Total number of decoded Ember+ requests handled, by classification.",
		}, []string{"kind"}),
		dispatchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emberplus",
			Name:      "dispatch_errors_total",
			Help:      "Total number of dispatcher errors, by kind.",
		}, []string{"kind"}),
		fanoutMessages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "emberplus",
			Name:      "fanout_messages_total",
			Help:      "Total number of subscriber fan-out messages queued.",
		}),
	}
}

// Attach wires m into server's connection and dispatch events. Call it
// once after NewServer and before ListenAndServe.
func (m *Metrics) Attach(server *Server) {
	if m == nil {
		return
	}
	server.dispatcher.AddOnRequest(func(RequestEvent) {
		m.requestsHandled.WithLabelValues("request").Inc()
	})
	server.dispatcher.AddOnMatrixChange(func(MatrixChangeEvent) {
		m.requestsHandled.WithLabelValues("matrix").Inc()
	})
	server.dispatcher.AddOnValueChange(func(ValueChangeEvent) {
		m.requestsHandled.WithLabelValues("value").Inc()
	})
	server.dispatcher.AddOnError(func(err error) {
		kind := "unknown"
		if e, ok := err.(*Error); ok {
			kind = e.Kind.String()
		}
		m.dispatchErrors.WithLabelValues(kind).Inc()
	})
	server.dispatcher.Subscriptions().AddOnFanout(func() {
		m.fanoutMessages.Inc()
	})
}

// AttachListener wires m into listener's connection lifecycle events.
// Separate from Attach because the Listener is created by Server.Listen,
// after the Dispatcher.
func (m *Metrics) AttachListener(listener *Listener) {
	if m == nil {
		return
	}
	listener.AddOnConnection(func(*Connection) {
		m.connectionsAccepted.Inc()
		m.connectionsActive.Inc()
	})
	listener.AddOnDisconnect(func(*Connection) {
		m.connectionsActive.Dec()
	})
}
