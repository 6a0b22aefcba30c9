package viz

import (
	"strings"
	"testing"

	"github.com/qsimlab/qsim/internal/store"
)

func TestPlotSeries(t *testing.T) {
	series, err := store.NewSeries(
		[]float64{0, 0.5, 1},
		[]string{"P_e"},
		[][]complex128{{1, 0.5, 0.25}},
	)
	if err != nil {
		t.Fatal(err)
	}

	out := PlotSeries(series, 40, 8)
	if !strings.Contains(out, "P_e") {
		t.Error("plot missing observable name")
	}
	if !strings.Contains(out, "t = 0 .. 1") {
		t.Error("plot missing time range")
	}
}

func TestDownsample(t *testing.T) {
	data := make([]float64, 1000)
	for i := range data {
		data[i] = float64(i)
	}

	out := downsample(data, 100)
	if len(out) != 100 {
		t.Fatalf("len = %d, want 100", len(out))
	}
	if out[0] != 0 || out[99] != 999 {
		t.Errorf("endpoints = %g, %g", out[0], out[99])
	}

	short := []float64{1, 2, 3}
	if got := downsample(short, 100); len(got) != 3 {
		t.Errorf("short input resampled to %d points", len(got))
	}
}

func TestProgressBar(t *testing.T) {
	bar := progressBar(5, 10, 10)
	if bar != "[=====     ]" {
		t.Errorf("bar = %q", bar)
	}
	if got := progressBar(20, 10, 10); got != "[==========]" {
		t.Errorf("overfull bar = %q", got)
	}
	if got := progressBar(0, 0, 4); !strings.HasPrefix(got, "[") {
		t.Errorf("zero-total bar = %q", got)
	}
}
