package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the collected metrics to a Pushgateway, replacing the previous
// push for the same job and service.
func Push(ctx context.Context, gatewayURL, job string) error {
	if !enabled || gatewayURL == "" {
		return nil
	}

	pusher := push.New(gatewayURL, job).Gatherer(registry)
	if serviceName != "" {
		pusher = pusher.Grouping("service", serviceName)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
