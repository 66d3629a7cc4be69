package counters

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var commandCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpi",
	Name:      "commands_total",
	Help:      "Total number of dispatched commands by synchronous result.",
}, []string{"command", "result"})

var commandTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpi",
	Name:      "command_timeouts_total",
	Help:      "Commands whose result never arrived within the await budget.",
}, []string{"command"})

var resultPushCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpi",
	Name:      "result_pushes_total",
	Help:      "Outbound result pushes to response_url by outcome.",
}, []string{"module", "outcome"})

var registrationCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpi",
	Name:      "registrations_total",
	Help:      "Credentials handshake operations by action and outcome.",
}, []string{"action", "outcome"})

var profileActionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpi",
	Name:      "profile_actions_total",
	Help:      "Charging profile actions by synchronous result.",
}, []string{"action", "result"})

func CountCommand(command, result string) {
	if len(command) == 0 || len(result) == 0 {
		return
	}
	commandCounter.With(prometheus.Labels{"command": command, "result": result}).Inc()
}

func CountCommandTimeout(command string) {
	if len(command) == 0 {
		return
	}
	commandTimeouts.With(prometheus.Labels{"command": command}).Inc()
}

func CountResultPush(module, outcome string) {
	if len(module) == 0 || len(outcome) == 0 {
		return
	}
	resultPushCounter.With(prometheus.Labels{"module": module, "outcome": outcome}).Inc()
}

func CountRegistration(action, outcome string) {
	if len(action) == 0 || len(outcome) == 0 {
		return
	}
	registrationCounter.With(prometheus.Labels{"action": action, "outcome": outcome}).Inc()
}

func CountProfileAction(action, result string) {
	if len(action) == 0 || len(result) == 0 {
		return
	}
	profileActionCounter.With(prometheus.Labels{"action": action, "result": result}).Inc()
}
