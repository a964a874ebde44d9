package tooldiag

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/relaymesh/toolbridge/pkg/toolmgr"
)

// Report is the structured diagnostic document for one service: connection
// status, the latest health snapshot, cumulative counters with history, and
// recommendation strings.
type Report struct {
	ID              string                 `json:"id"`
	Service         string                 `json:"service"`
	GeneratedAt     time.Time              `json:"generated_at"`
	Connection      ConnectionTestResult   `json:"connection"`
	Health          toolmgr.HealthStatus   `json:"health"`
	Diagnostics     toolmgr.DiagnosticInfo `json:"diagnostics"`
	Recommendations []string               `json:"recommendations"`
}

// BuildReport runs a connection test against the service and assembles the
// full document. It always returns a report; failures are captured inside it
// rather than aborting.
func BuildReport(ctx context.Context, resolver Resolver, serviceID string) Report {
	report := Report{
		ID:          uuid.NewString(),
		Service:     serviceID,
		GeneratedAt: time.Now(),
	}
	report.Connection = TestConnection(ctx, resolver, serviceID)
	report.Health = resolver.ServiceHealth(ctx, serviceID)
	if diag, ok := resolver.Diagnostics(serviceID); ok {
		report.Diagnostics = diag
	} else {
		report.Diagnostics = toolmgr.DiagnosticInfo{Service: serviceID}
	}
	report.Recommendations = Recommendations(report.Diagnostics)
	return report
}
