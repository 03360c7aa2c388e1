// Package metrics exposes Prometheus metrics for dta2parquet conversions.
//
// # Overview
//
// All metrics are registered on the default registry at package init:
//   - rows and chunks decoded
//   - bytes read from the input and written to the output
//   - stage durations (parse_metadata, parse_strls, decode, write)
//   - decode tasks started but not yet consumed
//   - resident memory of the process, sampled through gopsutil
//   - conversions by outcome
//
// A Collector is the handle components record through. Command-line runs are
// short-lived, so metrics are exported with WriteTextfile for the node-exporter
// textfile collector instead of being served over HTTP.
//
// # Basic Usage
//
//	c := metrics.NewCollector("convert")
//	timer := c.Stage("decode")
//	chunk, err := decode()
//	timer.Stop()
//	c.RowsDecoded(chunk.NumRows())
//
//	_ = metrics.WriteTextfile("/var/lib/node_exporter/dta2parquet.prom")
package metrics

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/process"
)

var (
	// RowsDecoded counts observations decoded into columnar form.
	RowsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dta2parquet_rows_decoded_total",
			Help: "Total number of observations decoded",
		},
		[]string{"component"},
	)

	// ChunksDecoded counts completed row-range decode tasks.
	ChunksDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dta2parquet_chunks_decoded_total",
			Help: "Total number of row ranges decoded",
		},
		[]string{"component"},
	)

	// InputBytes counts bytes of .dta input processed.
	InputBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dta2parquet_input_bytes_total",
			Help: "Total bytes of .dta input processed",
		},
		[]string{"component"},
	)

	// OutputBytes counts bytes of Parquet output written.
	OutputBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dta2parquet_output_bytes_total",
			Help: "Total bytes of Parquet output written",
		},
		[]string{"component"},
	)

	// StageDuration tracks how long each conversion stage takes, in seconds.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dta2parquet_stage_duration_seconds",
			Help: "Duration of conversion stages in seconds",
			Buckets: []float64{
				0.001, // 1ms - small headers
				0.01,  // 10ms
				0.1,   // 100ms - typical chunk decode
				1,     // 1s
				10,    // 10s - large row groups
				60,    // 1m
				600,   // 10m - multi-gigabyte files
			},
		},
		[]string{"component", "stage"},
	)

	// InflightTasks is the number of decode tasks started but not yet consumed.
	InflightTasks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dta2parquet_inflight_decode_tasks",
			Help: "Decode tasks started but not yet consumed",
		},
		[]string{"component"},
	)

	// ProcessRSS is the resident set size of the process in bytes.
	ProcessRSS = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dta2parquet_process_resident_memory_bytes",
			Help: "Resident memory of the converter process in bytes",
		},
	)

	// Conversions counts finished conversions by status (success/failure).
	Conversions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dta2parquet_conversions_total",
			Help: "Total number of conversions by outcome",
		},
		[]string{"status"},
	)
)

// Collector records metrics on behalf of one component.
type Collector struct {
	name      string
	startTime time.Time
}

// NewCollector creates a collector that labels its metrics with name.
func NewCollector(name string) *Collector {
	return &Collector{name: name, startTime: time.Now()}
}

// Name returns the component label.
func (c *Collector) Name() string { return c.name }

// StartTime returns when the collector was created.
func (c *Collector) StartTime() time.Time { return c.startTime }

// RowsDecoded adds n decoded observations.
func (c *Collector) RowsDecoded(n int) {
	RowsDecoded.WithLabelValues(c.name).Add(float64(n))
}

// ChunkDecoded records one completed decode task.
func (c *Collector) ChunkDecoded() {
	ChunksDecoded.WithLabelValues(c.name).Inc()
}

// InputBytes adds n bytes of input.
func (c *Collector) InputBytes(n int) {
	InputBytes.WithLabelValues(c.name).Add(float64(n))
}

// OutputBytes adds n bytes of output.
func (c *Collector) OutputBytes(n int64) {
	OutputBytes.WithLabelValues(c.name).Add(float64(n))
}

// TaskStarted marks a decode task as in flight.
func (c *Collector) TaskStarted() {
	InflightTasks.WithLabelValues(c.name).Inc()
}

// TaskConsumed marks a decode task as consumed.
func (c *Collector) TaskConsumed() {
	InflightTasks.WithLabelValues(c.name).Dec()
}

// Conversion records the outcome of one conversion.
func (c *Collector) Conversion(err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	Conversions.WithLabelValues(status).Inc()
}

// Stage starts a timer for a conversion stage.
func (c *Collector) Stage(stage string) *Timer {
	return &Timer{
		start:    time.Now(),
		name:     stage,
		observer: StageDuration.WithLabelValues(c.name, stage),
	}
}

// SampleProcess updates ProcessRSS from the operating system.
func (c *Collector) SampleProcess() error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		return err
	}
	ProcessRSS.Set(float64(mem.RSS))
	return nil
}

// Timer measures one stage. Stop may be called more than once; only the
// first call is observed.
type Timer struct {
	start    time.Time
	name     string
	observer prometheus.Observer
	stopped  bool
}

// Stop observes and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	if !t.stopped {
		t.stopped = true
		t.observer.Observe(d.Seconds())
	}
	return d
}

// Name returns the stage name.
func (t *Timer) Name() string { return t.name }

// WriteTextfile writes every registered metric to path in the text exposition
// format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
