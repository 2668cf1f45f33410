package prom

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	xhttp "github.com/bancoapp/banco-ledger/pkg/http"
	"github.com/bancoapp/banco-ledger/pkg/logger"
)

const (
	SystemNotifications = "notification"
)

const (
	MetricNotificationsDispatched      = "dispatched_total"
	MetricNotificationDispatchDuration = "dispatch_duration_seconds"
)

var (
	createLock = &sync.Mutex{}
	namespace  = "none"

	MetricSystemEnabled = false

	counterVecs   = make(map[string]*prometheus.CounterVec)
	histogramVecs = make(map[string]*prometheus.HistogramVec)

	defaultLabels prometheus.Labels
)

// Create registers the metric families the processes use. Call once at
// startup before any Inc/Observe.
func Create(host string, env string, nameSpace string) error {
	defaultLabels = prometheus.Labels{"env": env, "instance": host}
	namespace = nameSpace
	MetricSystemEnabled = true

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	hasError(createCounterVec(SystemNotifications, MetricNotificationsDispatched, []string{"kind", "status"}))
	hasError(createHistogramVec(SystemNotifications, MetricNotificationDispatchDuration, []string{"kind"}))

	return err
}

// ListenAndServe exposes /metrics (or the given url) on its own server.
func ListenAndServe(port string, url string) {
	hh := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s := xhttp.CreateServer()
	s.GET(url, hh)
	logger.Info("[metrics-server] listening...", "url", url)
	if err := s.ListenAndServe(port); err != nil {
		logger.Panic("[metrics-server] http listen error", "error", err)
	}
}

func createCounterVec(subsystem, name string, labels []string) error {
	createLock.Lock()
	defer createLock.Unlock()
	counterVecs[subsystem+name] = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(counterVecs[subsystem+name])
}

func createHistogramVec(subsystem, name string, labels []string) error {
	createLock.Lock()
	defer createLock.Unlock()
	histogramVecs[subsystem+name] = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
		Buckets:     prometheus.DefBuckets,
	}, labels)
	return prometheus.Register(histogramVecs[subsystem+name])
}

func IncCounterVec(subsystem, name string, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if c, ok := counterVecs[subsystem+name]; ok {
		c.WithLabelValues(labelValues...).Inc()
	}
}

func ObserveHistogramVec(subsystem, name string, value float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if h, ok := histogramVecs[subsystem+name]; ok {
		h.WithLabelValues(labelValues...).Observe(value)
	}
}

// AddNotificationDispatched counts one webhook dispatch attempt outcome.
func AddNotificationDispatched(kind, status string) {
	IncCounterVec(SystemNotifications, MetricNotificationsDispatched, kind, status)
}

// AddNotificationDispatchDuration records how long the webhook call took.
func AddNotificationDispatchDuration(seconds float64, kind string) {
	ObserveHistogramVec(SystemNotifications, MetricNotificationDispatchDuration, seconds, kind)
}
