package tracker

import (
	"errors"
	"strconv"
	"time"
)

// Header is the column layout of every results log
var Header = []string{"timestamp", "agent_type", "avg_wait_time",
	"avg_queue_length", "total_throughput"}

// Row is one row of a results log
type Row struct {
	Timestamp time.Time
	AgentType string
	EpisodeMetrics
}

// Record returns the row's fields formatted in Header order
func (r Row) Record() []string {
	return []string{
		r.Timestamp.Format(time.RFC3339Nano),
		r.AgentType,
		strconv.FormatFloat(r.AvgWaitTime, 'f', 2, 64),
		strconv.FormatFloat(r.AvgQueueLength, 'f', 2, 64),
		strconv.Itoa(r.TotalThroughput),
	}
}

// Log is an append-only results log
type Log interface {
	Append(rows ...Row) error
}

// MultiLog appends every row to each of its logs
type MultiLog []Log

// Append appends rows to every log, continuing past failures
func (m MultiLog) Append(rows ...Row) error {
	var errs []error
	for _, l := range m {
		if err := l.Append(rows...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
