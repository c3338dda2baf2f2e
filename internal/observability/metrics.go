package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// DispatchesTotal counts dispatch outcomes by channel.
	DispatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notigate_dispatches_total",
		Help: "Dispatch attempts by channel and outcome",
	}, []string{"channel", "outcome"})

	// ProviderDuration observes provider call latency.
	ProviderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "notigate_provider_seconds",
		Help: "Time spent in provider calls",
	}, []string{"provider"})

	// TemplateRenders counts template render attempts.
	TemplateRenders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notigate_template_renders_total",
		Help: "Template render attempts by template and result",
	}, []string{"template", "result"})
)

func init() {
	prometheus.MustRegister(
		DispatchesTotal,
		ProviderDuration,
		TemplateRenders,
	)
}
