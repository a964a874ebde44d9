package tooldiag

import (
	"github.com/relaymesh/toolbridge/pkg/toolmgr"
)

// healthyMessage is returned as the sole recommendation when no threshold is
// breached.
const healthyMessage = "service is operating normally"

// Recommendations derives operator guidance from a client's cumulative
// counters. Each breached threshold contributes one message; a clean bill of
// health yields exactly one "operating normally" entry.
func Recommendations(diag toolmgr.DiagnosticInfo) []string {
	var recs []string

	if metricOr(diag, "connection_success_rate", 1) < 0.90 {
		recs = append(recs, "connection success rate is below 90%; verify the service endpoint, credentials, and network path")
	}
	if metricOr(diag, "tool_call_success_rate", 1) < 0.95 {
		recs = append(recs, "tool call success rate is below 95%; inspect the service logs for recent tool errors")
	}
	if metricOr(diag, "timeout_rate", 0) > 0.10 {
		recs = append(recs, "more than 10% of tool calls time out; raise the call timeout or reduce load on the service")
	}
	if metricOr(diag, "recovery_success_rate", 1) < 0.80 {
		recs = append(recs, "recovery success rate is below 80%; the service connection is unstable, check the transport")
	}

	if len(recs) == 0 {
		return []string{healthyMessage}
	}
	return recs
}

// metricOr reads one derived metric, falling back to the neutral value for
// counters that have never moved.
func metricOr(diag toolmgr.DiagnosticInfo, key string, fallback float64) float64 {
	if v, ok := diag.PerformanceMetrics[key]; ok {
		return v
	}
	return fallback
}
