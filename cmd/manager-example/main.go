package main

import (
	"context"
	"fmt"
	"time"

	"github.com/relaymesh/toolbridge/pkg/toolmgr"
)

func main() {
	manager := toolmgr.NewManager(nil)

	cfg := &toolmgr.StdioServiceConfig{
		BaseServiceConfig: toolmgr.BaseServiceConfig{
			ConnectTimeout: 10 * time.Second,
			CallTimeout:    10 * time.Second,
		},
		Command: "./my-mcp-server",
		Args:    []string{"--serve"},
	}
	if err := manager.RegisterConfig("example-stdio", cfg); err != nil {
		fmt.Printf("register error: %v\n", err)
		return
	}

	ctx := context.Background()
	defer manager.Shutdown(ctx)

	for service, tools := range manager.DiscoverTools(ctx) {
		fmt.Printf("Service: %s (%d tools)\n", service, len(tools))
		for _, tool := range tools {
			fmt.Printf("  %s - %s\n", tool.Name, tool.Description)
		}
	}

	for service, health := range manager.AllServiceHealth(ctx) {
		fmt.Printf("Health of %s: healthy=%t tools=%d uptime=%.1f%%\n",
			service, health.Healthy, health.AvailableTools, health.UptimePercentage)
	}
}
