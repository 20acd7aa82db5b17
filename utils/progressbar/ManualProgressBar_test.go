package progressbar

import (
	"bytes"
	"strings"
	"testing"
)

func TestManualProgressBar(t *testing.T) {
	var buf bytes.Buffer
	p := NewManualProgressBar(&buf, 10, 4)

	for i := 0; i < 6; i++ {
		p.Increment()
	}
	if p.Progress() != 1 {
		t.Errorf("progress should saturate at 1, received %v", p.Progress())
	}

	p.Display()
	if !strings.Contains(buf.String(), "100.00%") {
		t.Errorf("expected a full bar, received %q", buf.String())
	}
	if strings.Count(p.String(), "█") != 10 {
		t.Errorf("expected 10 filled cells, received %q", p.String())
	}
}
