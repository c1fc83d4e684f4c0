package metrics

import (
	"fmt"
	"io"

	vm "github.com/VictoriaMetrics/metrics"
)

func StoreOp(driver, op string) {
	vm.GetOrCreateCounter(fmt.Sprintf(`store_ops_total{driver=%q,op=%q}`, driver, op)).Inc()
}

func StoreError(driver, op string) {
	vm.GetOrCreateCounter(fmt.Sprintf(`store_errors_total{driver=%q,op=%q}`, driver, op)).Inc()
}

func StoreConflict(driver string) {
	vm.GetOrCreateCounter(fmt.Sprintf(`store_mutate_conflicts_total{driver=%q}`, driver)).Inc()
}

// BoardEvent counts persisted writes by action (post.created, post.updated, post.deleted).
func BoardEvent(action string) {
	vm.GetOrCreateCounter(fmt.Sprintf(`board_events_total{action=%q}`, action)).Inc()
}

func HTTPRequest(method string, status int) {
	vm.GetOrCreateCounter(fmt.Sprintf(`http_requests_total{method=%q,status="%d"}`, method, status)).Inc()
}

func HubConnect() {
	vm.GetOrCreateCounter(`hub_connections_total`).Inc()
}

func HubDisconnect() {
	vm.GetOrCreateCounter(`hub_disconnections_total`).Inc()
}

// Counter exposes the current value of a named counter, mostly for tests.
func Counter(name string) uint64 {
	return vm.GetOrCreateCounter(name).Get()
}

func Write(w io.Writer) {
	vm.WritePrometheus(w, true)
}
