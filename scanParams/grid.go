package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	sqlx "github.com/jmoiron/sqlx"
	hillipop "github.com/next-exp/hillipop_go/pkg"
)

// GridCmd evaluates the likelihood over a list of parameter sets.
type GridCmd struct {
	ParamFile   string        `name:"params" short:"p" required:"" type:"existingfile" help:"Likelihood parameter file"`
	TheoryFile  string        `name:"theory" short:"t" required:"" type:"existingfile" help:"Theory Cl file (ell TT EE BB TE in K^2), optionally xz compressed"`
	GridFile    string        `arg:"" type:"existingfile" help:"Parameter sets, one JSON object per line, optionally xz compressed"`
	Out         string        `name:"out" short:"o" default:"scan.h5" help:"HDF5 results file"`
	Workers     int           `name:"workers" short:"w" default:"4" help:"Number of workers"`
	Batch       int           `name:"batch" default:"1000" help:"Evaluations written per batch"`
	Compression int           `name:"compression" default:"4" help:"Deflate level of the results file"`
	Ext         string        `name:"ext" default:".h5" help:"Extension of the likelihood input files"`
	Database    DatabaseFlags `embed:"" prefix:"db-"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address"`
}

func (g *GridCmd) Validate() error {
	if g.Workers < 1 {
		return fmt.Errorf("at least one worker is needed, got %d", g.Workers)
	}
	if g.Batch < 1 {
		return fmt.Errorf("invalid batch size %d", g.Batch)
	}
	return nil
}

func readGrid(filename string) ([]ParameterSet, error) {
	r, err := hillipop.OpenInput(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	sets, err := parseGrid(r)
	if err != nil {
		return nil, fmt.Errorf("error reading grid %s: %w", filename, err)
	}
	return sets, nil
}

// parseGrid reads a stream of JSON objects mapping parameter names to
// values.
func parseGrid(r io.Reader) ([]ParameterSet, error) {
	dec := json.NewDecoder(r)
	var sets []ParameterSet
	for {
		values := make(map[string]float64)
		err := dec.Decode(&values)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parameter set %d: %w", len(sets), err)
		}
		sets = append(sets, ParameterSet{Index: len(sets), Values: values})
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("no parameter set")
	}
	return sets, nil
}

// countMissing counts the parameter sets without the named parameter.
func countMissing(sets []ParameterSet, name string) int {
	n := 0
	for _, set := range sets {
		if _, ok := set.Values[name]; !ok {
			n++
		}
	}
	return n
}

// resultSink writes evaluations by batches, in index order inside each
// batch.
type resultSink struct {
	writer      *hillipop.ResultsWriter
	db          *sqlx.DB
	runID       string
	fingerprint string
	names       []string
	size        int
	batch       []hillipop.Evaluation
}

func (s *resultSink) add(ev hillipop.Evaluation) error {
	s.batch = append(s.batch, ev)
	if len(s.batch) >= s.size {
		return s.flush()
	}
	return nil
}

func (s *resultSink) flush() error {
	if len(s.batch) == 0 {
		return nil
	}
	sort.Slice(s.batch, func(i, j int) bool { return s.batch[i].Index < s.batch[j].Index })
	if err := s.writer.Write(s.batch); err != nil {
		return err
	}
	if s.db != nil {
		if err := hillipop.SaveEvaluations(s.db, s.runID, s.fingerprint, s.names, s.batch); err != nil {
			return err
		}
	}
	storedBatches.Inc()
	s.batch = s.batch[:0]
	return nil
}

func (g *GridCmd) Run() error {
	pars, err := hillipop.ReadParameterFile(g.ParamFile)
	if err != nil {
		return fmt.Errorf("error reading parameter file: %w", err)
	}
	settings, err := hillipop.NewSettings(pars)
	if err != nil {
		return err
	}
	src := &hillipop.HDF5Source{Ext: g.Ext}
	engine, err := hillipop.NewEngine(settings, src)
	if err != nil {
		return fmt.Errorf("error building likelihood: %w", err)
	}
	fingerprint, err := hillipop.Fingerprint(settings.InputFiles(src.Ext))
	if err != nil {
		return fmt.Errorf("error computing input fingerprint: %w", err)
	}

	theory, err := hillipop.ReadTheory(g.TheoryFile)
	if err != nil {
		return err
	}
	sets, err := readGrid(g.GridFile)
	if err != nil {
		return err
	}
	names := engine.ParameterNames()
	if n := countMissing(sets, "Aplanck"); n > 0 {
		logger.Info(fmt.Sprintf("%d parameter sets without Aplanck, evaluated with Aplanck = 1", n), "grid")
	}
	runID := uuid.NewString()
	if VerbosityLevel > 0 {
		logger.Info(fmt.Sprintf("Run %s: %d parameter sets, %d workers", runID, len(sets), g.Workers), "grid")
		logger.Info(fmt.Sprintf("Parameters: %v", names), "grid")
	}

	sink := &resultSink{runID: runID, fingerprint: fingerprint, names: names, size: g.Batch}
	sink.writer, err = hillipop.NewResultsWriter(g.Out, names, g.Compression)
	if err != nil {
		return err
	}
	defer sink.writer.Close()
	if g.Database.DSN != "" {
		sink.db, err = g.Database.open()
		if err != nil {
			return err
		}
		defer sink.db.Close()
	}

	if g.MetricsAddr != "" {
		serveMetrics(g.MetricsAddr)
	}

	start := time.Now()
	best := hillipop.Evaluation{Index: -1, Chi2: math.Inf(1)}
	failed := 0
	done := make(chan struct{})
	defer close(done)
	for ev := range startWorkers(done, g.Workers, engine, theory, names, sets) {
		if ev.Err != nil {
			failed++
			if VerbosityLevel > 1 {
				logger.Error(fmt.Sprintf("parameter set %d: %v", ev.Index, ev.Err))
			}
		} else if ev.Chi2 < best.Chi2 {
			best = ev
		}
		if err := sink.add(ev); err != nil {
			return fmt.Errorf("error storing results: %w", err)
		}
	}
	if err := sink.flush(); err != nil {
		return fmt.Errorf("error storing results: %w", err)
	}

	logger.Info(fmt.Sprintf("%d evaluations in %d ms, %d failed", len(sets), time.Since(start).Milliseconds(), failed), "grid")
	if best.Index >= 0 {
		logger.Info(fmt.Sprintf("Best chi2 = %.4f (p-value %.4g) for parameter set %d", best.Chi2, best.PValue, best.Index), "grid")
	}
	return nil
}
