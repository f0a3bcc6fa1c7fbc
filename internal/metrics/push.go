package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends every registered metric to a Prometheus Pushgateway under job.
// Used by one-shot commands that exit before they could be scraped.
func (r *Registry) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
