package tooldiag

import (
	"context"
	"time"

	"github.com/relaymesh/toolbridge/pkg/toolmgr"
)

// Resolver is the slice of the manager surface the diagnostics need.
// *toolmgr.Manager satisfies it.
type Resolver interface {
	Client(ctx context.Context, serviceID string) (*toolmgr.Client, error)
	Services() []string
	ServiceHealth(ctx context.Context, serviceID string) toolmgr.HealthStatus
	Diagnostics(serviceID string) (toolmgr.DiagnosticInfo, bool)
	Registry() *toolmgr.Registry
}

// ConnectionTestResult is the outcome of a single connection test.
type ConnectionTestResult struct {
	Service   string                  `json:"service"`
	Success   bool                    `json:"success"`
	Latency   time.Duration           `json:"latency"`
	State     toolmgr.ConnectionState `json:"state"`
	ToolCount int                     `json:"tool_count"`
	Error     string                  `json:"error,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// TestConnection resolves the service (connecting on first use) and issues one
// fresh health probe.
func TestConnection(ctx context.Context, resolver Resolver, serviceID string) ConnectionTestResult {
	result := ConnectionTestResult{Service: serviceID, Timestamp: time.Now()}
	start := time.Now()
	client, err := resolver.Client(ctx, serviceID)
	if err != nil {
		result.Latency = time.Since(start)
		result.State = toolmgr.StateFailed
		result.Error = err.Error()
		return result
	}
	status := client.HealthWithin(ctx, 0)
	result.Success = status.Healthy
	result.Latency = status.ResponseTime
	result.State = client.State()
	result.ToolCount = status.AvailableTools
	result.Error = status.ErrorMessage
	return result
}

// SampleOptions bound a performance sampling run.
type SampleOptions struct {
	// Samples is how many probes to issue. Defaults to 5.
	Samples int
	// Interval is the cadence between probes. Defaults to 1s.
	Interval time.Duration
}

func (o *SampleOptions) normalized() SampleOptions {
	var opts SampleOptions
	if o != nil {
		opts = *o
	}
	if opts.Samples <= 0 {
		opts.Samples = 5
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	return opts
}

// PerformanceSample aggregates one sampling run.
type PerformanceSample struct {
	Service     string        `json:"service"`
	Samples     int           `json:"samples"`
	Successes   int           `json:"successes"`
	SuccessRate float64       `json:"success_rate"`
	MinLatency  time.Duration `json:"min_latency"`
	AvgLatency  time.Duration `json:"avg_latency"`
	MaxLatency  time.Duration `json:"max_latency"`
}

// SamplePerformance probes the service repeatedly at the configured cadence
// and aggregates latency and success rate. The first probe fires immediately.
// A cancelled context returns the partial aggregate along with the context
// error.
func SamplePerformance(ctx context.Context, resolver Resolver, serviceID string, opts *SampleOptions) (PerformanceSample, error) {
	options := opts.normalized()
	sample := PerformanceSample{Service: serviceID}

	client, err := resolver.Client(ctx, serviceID)
	if err != nil {
		return sample, err
	}

	ticker := time.NewTicker(options.Interval)
	defer ticker.Stop()

	var total time.Duration
	for i := 0; i < options.Samples; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				finishSample(&sample, total)
				return sample, ctx.Err()
			case <-ticker.C:
			}
		}
		status := client.HealthWithin(ctx, 0)
		sample.Samples++
		if status.Healthy {
			sample.Successes++
		}
		latency := status.ResponseTime
		total += latency
		if sample.Samples == 1 || latency < sample.MinLatency {
			sample.MinLatency = latency
		}
		if latency > sample.MaxLatency {
			sample.MaxLatency = latency
		}
	}
	finishSample(&sample, total)
	return sample, nil
}

func finishSample(sample *PerformanceSample, total time.Duration) {
	if sample.Samples == 0 {
		return
	}
	sample.AvgLatency = total / time.Duration(sample.Samples)
	sample.SuccessRate = float64(sample.Successes) / float64(sample.Samples)
}

// ServiceInventory lists the registered tools of one service.
type ServiceInventory struct {
	Service string             `json:"service"`
	Tools   []toolmgr.ToolInfo `json:"tools"`
}

// Inventory snapshots the registry without touching any remote service.
func Inventory(registry *toolmgr.Registry) []ServiceInventory {
	services := registry.Services()
	inventory := make([]ServiceInventory, 0, len(services))
	for _, id := range services {
		inventory = append(inventory, ServiceInventory{
			Service: id,
			Tools:   registry.ToolsByService(id),
		})
	}
	return inventory
}
