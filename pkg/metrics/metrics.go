package metrics

import (
	"fmt"
	"sync"
	"time"
)

// Metrics holds relay-wide counters
type Metrics struct {
	mu sync.RWMutex

	// Session metrics
	SessionsStarted int64
	SessionsEnded   int64
	ActiveSessions  int64

	// Audio metrics
	FramesToAgent   int64
	FramesToCaller  int64
	BytesToAgent    int64
	BytesToCaller   int64
	BargeIns        int64
	FarewellsPlayed int64

	// Function call metrics
	FunctionCalls  map[string]int64
	FunctionErrors map[string]int64

	// Service metrics
	ServiceCalls   map[string]int64
	ServiceErrors  map[string]int64
	ServiceLatency map[string][]time.Duration

	// Circuit breaker metrics
	CircuitBreakerState    map[string]string
	CircuitBreakerFailures map[string]int64

	// Start time
	StartTime time.Time
}

var globalMetrics = &Metrics{
	FunctionCalls:          make(map[string]int64),
	FunctionErrors:         make(map[string]int64),
	ServiceCalls:           make(map[string]int64),
	ServiceErrors:          make(map[string]int64),
	ServiceLatency:         make(map[string][]time.Duration),
	CircuitBreakerState:    make(map[string]string),
	CircuitBreakerFailures: make(map[string]int64),
	StartTime:              time.Now(),
}

// SessionStarted records a new relay session
func SessionStarted() {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.SessionsStarted++
	globalMetrics.ActiveSessions++
}

// SessionEnded records a finished relay session
func SessionEnded() {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.SessionsEnded++
	if globalMetrics.ActiveSessions > 0 {
		globalMetrics.ActiveSessions--
	}
}

// FrameToAgent records an audio frame forwarded to the agent
func FrameToAgent(bytes int) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.FramesToAgent++
	globalMetrics.BytesToAgent += int64(bytes)
}

// FrameToCaller records an audio frame forwarded to the caller
func FrameToCaller(bytes int) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.FramesToCaller++
	globalMetrics.BytesToCaller += int64(bytes)
}

// BargeIn records a caller interruption
func BargeIn() {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.BargeIns++
}

// FarewellPlayed records a completed farewell playout
func FarewellPlayed() {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.FarewellsPlayed++
}

// RecordFunctionCall records a dispatched agent function call
func RecordFunctionCall(name string, success bool) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.FunctionCalls[name]++
	if !success {
		globalMetrics.FunctionErrors[name]++
	}
}

// RecordServiceCall records a backend service call
func RecordServiceCall(service string, success bool, latency time.Duration) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.ServiceCalls[service]++
	if !success {
		globalMetrics.ServiceErrors[service]++
	}

	// Keep only last 100 latency measurements per service
	if len(globalMetrics.ServiceLatency[service]) >= 100 {
		globalMetrics.ServiceLatency[service] = globalMetrics.ServiceLatency[service][1:]
	}
	globalMetrics.ServiceLatency[service] = append(globalMetrics.ServiceLatency[service], latency)
}

// UpdateCircuitBreaker updates circuit breaker metrics
func UpdateCircuitBreaker(service, state string, failures int64) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.CircuitBreakerState[service] = state
	globalMetrics.CircuitBreakerFailures[service] = failures
}

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	globalMetrics.mu.RLock()
	defer globalMetrics.mu.RUnlock()

	serviceAvgLatency := make(map[string]float64)
	for service, latencies := range globalMetrics.ServiceLatency {
		if len(latencies) > 0 {
			var sum time.Duration
			for _, l := range latencies {
				sum += l
			}
			serviceAvgLatency[service] = sum.Seconds() / float64(len(latencies))
		}
	}

	functionCalls := make(map[string]int64, len(globalMetrics.FunctionCalls))
	for name, count := range globalMetrics.FunctionCalls {
		functionCalls[name] = count
	}
	functionErrors := make(map[string]int64, len(globalMetrics.FunctionErrors))
	for name, count := range globalMetrics.FunctionErrors {
		functionErrors[name] = count
	}

	uptime := time.Since(globalMetrics.StartTime)

	return map[string]interface{}{
		"uptime_seconds": uptime.Seconds(),
		"sessions": map[string]interface{}{
			"started": globalMetrics.SessionsStarted,
			"ended":   globalMetrics.SessionsEnded,
			"active":  globalMetrics.ActiveSessions,
		},
		"audio": map[string]interface{}{
			"frames_to_agent":  globalMetrics.FramesToAgent,
			"frames_to_caller": globalMetrics.FramesToCaller,
			"bytes_to_agent":   globalMetrics.BytesToAgent,
			"bytes_to_caller":  globalMetrics.BytesToCaller,
			"barge_ins":        globalMetrics.BargeIns,
			"farewells_played": globalMetrics.FarewellsPlayed,
		},
		"functions": map[string]interface{}{
			"calls":  functionCalls,
			"errors": functionErrors,
		},
		"services": map[string]interface{}{
			"calls":               globalMetrics.ServiceCalls,
			"errors":              globalMetrics.ServiceErrors,
			"latency_avg_seconds": serviceAvgLatency,
		},
		"circuit_breakers": map[string]interface{}{
			"state":    globalMetrics.CircuitBreakerState,
			"failures": globalMetrics.CircuitBreakerFailures,
		},
	}
}

// GetPrometheusMetrics returns metrics in Prometheus format
func GetPrometheusMetrics() string {
	metrics := GetMetrics()
	var output string

	output += "# HELP relay_uptime_seconds Relay uptime in seconds\n"
	output += "# TYPE relay_uptime_seconds gauge\n"
	output += fmt.Sprintf("relay_uptime_seconds %.2f\n", metrics["uptime_seconds"].(float64))

	sessions := metrics["sessions"].(map[string]interface{})
	output += "# HELP relay_sessions_total Relay sessions by state\n"
	output += "# TYPE relay_sessions_total counter\n"
	output += fmt.Sprintf("relay_sessions_total{state=\"started\"} %d\n", sessions["started"].(int64))
	output += fmt.Sprintf("relay_sessions_total{state=\"ended\"} %d\n", sessions["ended"].(int64))
	output += "# HELP relay_sessions_active Currently active relay sessions\n"
	output += "# TYPE relay_sessions_active gauge\n"
	output += fmt.Sprintf("relay_sessions_active %d\n", sessions["active"].(int64))

	audio := metrics["audio"].(map[string]interface{})
	output += "# HELP relay_frames_total Audio frames relayed by direction\n"
	output += "# TYPE relay_frames_total counter\n"
	output += fmt.Sprintf("relay_frames_total{direction=\"to_agent\"} %d\n", audio["frames_to_agent"].(int64))
	output += fmt.Sprintf("relay_frames_total{direction=\"to_caller\"} %d\n", audio["frames_to_caller"].(int64))
	output += "# HELP relay_barge_ins_total Caller interruptions\n"
	output += "# TYPE relay_barge_ins_total counter\n"
	output += fmt.Sprintf("relay_barge_ins_total %d\n", audio["barge_ins"].(int64))

	functions := metrics["functions"].(map[string]interface{})
	functionCalls := functions["calls"].(map[string]int64)
	output += "# HELP relay_function_calls_total Agent function calls by name\n"
	output += "# TYPE relay_function_calls_total counter\n"
	for name, count := range functionCalls {
		output += fmt.Sprintf("relay_function_calls_total{function=\"%s\"} %d\n", name, count)
	}
	functionErrors := functions["errors"].(map[string]int64)
	output += "# HELP relay_function_errors_total Agent function call errors by name\n"
	output += "# TYPE relay_function_errors_total counter\n"
	for name, count := range functionErrors {
		output += fmt.Sprintf("relay_function_errors_total{function=\"%s\"} %d\n", name, count)
	}

	services := metrics["services"].(map[string]interface{})
	serviceCalls := services["calls"].(map[string]int64)
	output += "# HELP relay_service_calls_total Backend service calls\n"
	output += "# TYPE relay_service_calls_total counter\n"
	for service, count := range serviceCalls {
		output += fmt.Sprintf("relay_service_calls_total{service=\"%s\"} %d\n", service, count)
	}

	return output
}
