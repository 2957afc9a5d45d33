package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	hillipop "github.com/next-exp/hillipop_go/pkg"
)

// testEngine has maps at 100 and 143 GHz, TT only, with the spectrum
// Dl = l over [2, 10] and unit weights and covariance.
func testEngine(t *testing.T) *hillipop.Engine {
	t.Helper()
	idx, err := hillipop.NewIndexMaps([]int{100, 143})
	if err != nil {
		t.Fatalf("NewIndexMaps() error = %v", err)
	}
	rec := hillipop.RangeRecord{LMin: []int{2, 2, 2}, LMax: []int{10, 10, 10}}
	table, err := hillipop.NewMultipoleRangeTable("ranges",
		map[hillipop.Mode]hillipop.RangeRecord{hillipop.TT: rec, hillipop.EE: rec, hillipop.BB: rec, hillipop.TE: rec}, idx)
	if err != nil {
		t.Fatalf("NewMultipoleRangeTable() error = %v", err)
	}

	data := make(map[hillipop.Mode][][]float64)
	weight := make(map[hillipop.Mode][][]float64)
	for _, mode := range hillipop.SpectrumModes {
		dl, w8 := make([]float64, 11), make([]float64, 11)
		for l := range dl {
			dl[l], w8[l] = float64(l), 1
		}
		data[mode], weight[mode] = [][]float64{dl}, [][]float64{w8}
	}
	store, err := hillipop.NewSpectrumStore(10, data, weight)
	if err != nil {
		t.Fatalf("NewSpectrumStore() error = %v", err)
	}

	invcov := make([]float64, 27*27)
	for i := 0; i < 27; i++ {
		invcov[i*27+i] = 1
	}
	cov, _ := hillipop.NewInverseCovariance(27, invcov)
	engine, err := hillipop.NewEngineFromParts(hillipop.NewModeSet(hillipop.TT), idx, table, store, cov, nil)
	if err != nil {
		t.Fatalf("NewEngineFromParts() error = %v", err)
	}
	return engine
}

func TestParseGrid(t *testing.T) {
	input := `{"Aplanck": 1, "c0": 0, "c1": 0}
{"Aplanck": 1.01, "c0": 0.001, "c1": -0.001}

{"c0": 0, "c1": 0.5}
`
	sets, err := parseGrid(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseGrid() error = %v", err)
	}
	if len(sets) != 3 {
		t.Fatalf("parseGrid() returned %d sets, want 3", len(sets))
	}
	if sets[2].Index != 2 || sets[2].Values["c1"] != 0.5 {
		t.Errorf("sets[2] = %+v", sets[2])
	}

	if n := countMissing(sets, "Aplanck"); n != 1 {
		t.Errorf("countMissing(Aplanck) = %d, want 1", n)
	}

	for _, bad := range []string{"", `{"c0": "zero"}`, `{"c0": 0}` + "\n{"} {
		if _, err := parseGrid(strings.NewReader(bad)); err == nil {
			t.Errorf("parseGrid(%q) should fail", bad)
		}
	}
}

func TestStartWorkers(t *testing.T) {
	engine := testEngine(t)
	theory := hillipop.Theory{make([]float64, 11)}
	names := engine.ParameterNames()
	if !reflect.DeepEqual(names, []string{"Aplanck", "c0", "c1"}) {
		t.Fatalf("ParameterNames() = %v", names)
	}

	var sets []ParameterSet
	for i := 0; i < 50; i++ {
		values := map[string]float64{"c0": 0, "c1": 0}
		if i%10 == 9 {
			delete(values, "c1")
		}
		sets = append(sets, ParameterSet{Index: i, Values: values})
	}

	seen := make(map[int]bool)
	failed := 0
	done := make(chan struct{})
	defer close(done)
	for ev := range startWorkers(done, 4, engine, theory, names, sets) {
		if seen[ev.Index] {
			t.Errorf("parameter set %d evaluated twice", ev.Index)
		}
		seen[ev.Index] = true
		if ev.Err != nil {
			failed++
			continue
		}
		// zero theory: sum of l^2 over [2, 10]
		if ev.Chi2 != 384 {
			t.Errorf("set %d: chi2 = %v, want 384", ev.Index, ev.Chi2)
		}
		if ev.Values[0] != 1 {
			t.Errorf("set %d: Aplanck = %v, want the default 1", ev.Index, ev.Values[0])
		}
	}
	if len(seen) != 50 || failed != 5 {
		t.Errorf("%d sets evaluated, %d failed, want 50 and 5", len(seen), failed)
	}
}

func TestStartWorkersStop(t *testing.T) {
	engine := testEngine(t)
	theory := hillipop.Theory{make([]float64, 11)}
	names := engine.ParameterNames()

	sets := make([]ParameterSet, 1000)
	for i := range sets {
		sets[i] = ParameterSet{Index: i, Values: map[string]float64{"c0": 0, "c1": 0}}
	}

	done := make(chan struct{})
	results := startWorkers(done, 4, engine, theory, names, sets)

	// nobody reads: the workers block once the results buffer is full
	timeout := time.After(5 * time.Second)
	for len(results) < cap(results) {
		select {
		case <-timeout:
			t.Fatalf("results buffer holds %d evaluations, want %d", len(results), cap(results))
		case <-time.After(time.Millisecond):
		}
	}
	close(done)

	received := 0
	for {
		select {
		case _, ok := <-results:
			if !ok {
				if received >= len(sets) {
					t.Errorf("%d sets evaluated after stopping, want fewer than %d", received, len(sets))
				}
				return
			}
			received++
		case <-timeout:
			t.Fatal("results channel still open after stopping the workers")
		}
	}
}

func TestResultSink(t *testing.T) {
	engine := testEngine(t)
	names := engine.ParameterNames()

	writer, err := hillipop.NewResultsWriter(filepath.Join(t.TempDir(), "scan.h5"), names, 0)
	if err != nil {
		t.Fatalf("NewResultsWriter() error = %v", err)
	}
	defer writer.Close()
	db, err := DatabaseFlags{Driver: "sqlite", DSN: ":memory:"}.open()
	if err != nil {
		t.Fatalf("open() error = %v", err)
	}
	defer db.Close()

	sink := &resultSink{writer: writer, db: db, runID: "run", fingerprint: "fp", names: names, size: 4}
	for _, i := range []int{3, 1, 0, 2, 5, 4} {
		ev := hillipop.Evaluation{Index: i, Values: []float64{1, 0, float64(i)}, Chi2: float64(10 * i)}
		if err := sink.add(ev); err != nil {
			t.Fatalf("add() error = %v", err)
		}
	}
	if writer.EvtCounter != 4 {
		t.Errorf("%d evaluations written before flush, want 4", writer.EvtCounter)
	}
	if err := sink.flush(); err != nil {
		t.Fatalf("flush() error = %v", err)
	}
	if writer.EvtCounter != 6 {
		t.Errorf("%d evaluations written, want 6", writer.EvtCounter)
	}

	entries, err := hillipop.LoadEvaluations(db, "run")
	if err != nil || len(entries) != 6 {
		t.Fatalf("LoadEvaluations() = %d entries, %v", len(entries), err)
	}

	var out bytes.Buffer
	if err := printEvaluations(&out, entries, false); err != nil {
		t.Fatalf("printEvaluations() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 7 {
		t.Fatalf("printEvaluations() wrote %d lines, want 7:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[6], "50.0000") || !strings.Contains(lines[6], "c1=5") {
		t.Errorf("last line = %q", lines[6])
	}
}

func TestParseRanges(t *testing.T) {
	got, err := parseRanges([]string{"30:500", " 50 : 2000"})
	if err != nil {
		t.Fatalf("parseRanges() error = %v", err)
	}
	if !reflect.DeepEqual(got, [][2]int{{30, 500}, {50, 2000}}) {
		t.Errorf("parseRanges() = %v", got)
	}

	for _, bad := range []string{"30", "a:500", "30:b", "500:30", "-1:10"} {
		if _, err := parseRanges([]string{bad}); err == nil {
			t.Errorf("parseRanges(%q) should fail", bad)
		}
	}
}

func TestRangesCmd(t *testing.T) {
	out := filepath.Join(t.TempDir(), "binning.h5")
	cmd := &RangesCmd{
		Out: out,
		TT:  []string{"30:500", "30:1000", "50:2000"},
		EE:  []string{"30:800", "30:800", "30:800"},
		BB:  []string{"30:800", "30:800", "30:800"},
		TE:  []string{"30:600", "30:700", "30:800"},
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	records, err := hillipop.NewHDF5Source().ReadMultipoleRanges(strings.TrimSuffix(out, ".h5"))
	if err != nil {
		t.Fatalf("ReadMultipoleRanges() error = %v", err)
	}
	if got := fmt.Sprint(records[hillipop.TE].LMax); got != "[600 700 800]" {
		t.Errorf("TE LMAX = %s", got)
	}
}
