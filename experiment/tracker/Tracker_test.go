package tracker

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/coolport/thesis/environment"
	ts "github.com/coolport/thesis/timestep"
)

func TestEpisodeMetrics(t *testing.T) {
	e := NewEpisode(2)
	if m := e.Metrics(); m.AvgWaitTime != 0 || m.Steps != 0 {
		t.Errorf("expected zero metrics for an empty episode, received %v", m)
	}

	rewards := []float64{-10, -20, -30}
	queues := []int{1, 2, 6}
	for i, r := range rewards {
		e.Track(ts.New(ts.Mid, r, nil, i+1), environment.Info{
			QueueLength: queues[i],
			Throughput:  i,
		})
	}

	m := e.Metrics()
	if m.Episode != 2 || m.Steps != 3 {
		t.Errorf("expected episode 2 with 3 steps, received %v", m)
	}
	if !scalar.EqualWithinAbs(m.TotalWaitTime, 60, 1e-12) ||
		!scalar.EqualWithinAbs(m.Return, -60, 1e-12) {
		t.Errorf("expected total wait 60, received %v", m.TotalWaitTime)
	}
	if !scalar.EqualWithinAbs(m.AvgWaitTime, 20, 1e-12) {
		t.Errorf("expected average wait 20, received %v", m.AvgWaitTime)
	}
	if !scalar.EqualWithinAbs(m.AvgQueueLength, 3, 1e-12) {
		t.Errorf("expected average queue 3, received %v", m.AvgQueueLength)
	}
	if m.TotalThroughput != 3 {
		t.Errorf("expected throughput 3, received %v", m.TotalThroughput)
	}
}

func row(agentType string, wait float64) Row {
	return Row{
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		AgentType: agentType,
		EpisodeMetrics: EpisodeMetrics{
			AvgWaitTime:     wait,
			AvgQueueLength:  4.256,
			TotalThroughput: 37,
		},
	}
}

func TestCSVHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "evaluation.csv")
	log := NewCSVLog(path)

	if err := log.Append(row("tabular", 12.346)); err != nil {
		t.Fatal(err)
	}
	if err := log.Append(row("fixed-time", 20), row("fixed-time", 21)); err != nil {
		t.Fatal(err)
	}

	records, err := LoadData(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("expected a header and 3 rows, received %v", records)
	}
	for i, r := range records[1:] {
		if r[0] == Header[0] {
			t.Errorf("row %v repeats the header", i+1)
		}
	}

	want := []string{"2024-03-01T12:00:00Z", "tabular", "12.35", "4.26", "37"}
	for i := range want {
		if records[1][i] != want[i] {
			t.Errorf("column %v: expected %q, received %q", Header[i], want[i],
				records[1][i])
		}
	}
}

func TestXLSXAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evaluation.xlsx")
	log := MultiLog{NewXLSXLog(path)}

	for i := 0; i < 2; i++ {
		if err := log.Append(row("dueling-network", float64(i))); err != nil {
			t.Fatal(err)
		}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows(Sheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected a header and 2 rows, received %v", rows)
	}
	if rows[0][1] != "agent_type" || rows[2][1] != "dueling-network" {
		t.Errorf("unexpected sheet contents %v", rows)
	}
}
