// Package metrics2 provides gauge, counter, and liveness metrics backed by
// Prometheus.
package metrics2

// Int64Metric is a metric which reports an int64 value.
type Int64Metric interface {
	// Get returns the current value of the metric.
	Get() int64

	// Update sets the current value of the metric.
	Update(v int64)
}

// Float64Metric is a metric which reports a float64 value.
type Float64Metric interface {
	// Get returns the current value of the metric.
	Get() float64

	// Update sets the current value of the metric.
	Update(v float64)
}

// Counter is a metric which reports a value which increments or decrements.
type Counter interface {
	Int64Metric

	// Inc increments the counter by the given quantity.
	Inc(i int64)

	// Dec decrements the counter by the given quantity.
	Dec(i int64)

	// Reset sets the counter to zero.
	Reset()
}

// Client represents a set of metrics.
type Client interface {
	// GetInt64Metric returns an Int64Metric instance. The tags are
	// expressed as Prometheus labels; the variadic maps are merged, with
	// later maps winning on duplicate keys.
	GetInt64Metric(measurement string, tags ...map[string]string) Int64Metric

	// GetFloat64Metric returns a Float64Metric instance.
	GetFloat64Metric(measurement string, tags ...map[string]string) Float64Metric

	// GetCounter returns a Counter instance.
	GetCounter(name string, tags ...map[string]string) Counter

	// NewLiveness creates a new Liveness metric helper.
	NewLiveness(name string, tags ...map[string]string) Liveness
}

var defaultClient Client = newPromClient()

// GetDefaultClient returns the default Client.
func GetDefaultClient() Client {
	return defaultClient
}

// GetInt64Metric returns an Int64Metric instance using the default client.
func GetInt64Metric(measurement string, tags ...map[string]string) Int64Metric {
	return defaultClient.GetInt64Metric(measurement, tags...)
}

// GetFloat64Metric returns a Float64Metric instance using the default client.
func GetFloat64Metric(measurement string, tags ...map[string]string) Float64Metric {
	return defaultClient.GetFloat64Metric(measurement, tags...)
}

// GetCounter returns a Counter using the default client.
func GetCounter(name string, tags ...map[string]string) Counter {
	return defaultClient.GetCounter(name, tags...)
}

// NewLiveness creates a new Liveness metric helper using the default client.
func NewLiveness(name string, tags ...map[string]string) Liveness {
	return defaultClient.NewLiveness(name, tags...)
}
