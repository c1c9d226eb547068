package metrics

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the default registry to a Pushgateway.
func Push(url, job string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("metrics: empty pushgateway url")
	}
	if job == "" {
		job = "entsoe_bridge"
	}
	return push.New(url, job).Gatherer(prometheus.DefaultGatherer).Push()
}
