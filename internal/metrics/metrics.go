// Package metrics holds the Prometheus counters of the auth service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is private to the service so tests can build servers
// repeatedly without duplicate registration.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	Signups = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "signups_total",
		Help:      "Signup attempts by outcome.",
	}, []string{"outcome"})

	Signins = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "signins_total",
		Help:      "Signin attempts by outcome.",
	}, []string{"outcome"})

	Refreshes = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "refreshes_total",
		Help:      "Token refresh attempts by outcome.",
	}, []string{"outcome"})

	Authentications = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "gate_authentications_total",
		Help:      "Bearer token authentications performed by the request gate, by outcome.",
	}, []string{"outcome"})

	Authorizations = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "authorization_decisions_total",
		Help:      "Route authorization decisions.",
	}, []string{"decision"})
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
