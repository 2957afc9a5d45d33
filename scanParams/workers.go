package main

import (
	"fmt"
	"sync"
	"time"

	hillipop "github.com/next-exp/hillipop_go/pkg"
)

// ParameterSet is one point of a scan.
type ParameterSet struct {
	Index  int
	Values map[string]float64
}

func worker(id int, engine *hillipop.Engine, theory hillipop.Theory, names []string,
	jobs <-chan ParameterSet, results chan<- hillipop.Evaluation, done <-chan struct{}) {
	for set := range jobs {
		if VerbosityLevel > 2 {
			logger.Info(fmt.Sprintf("Worker %d processing parameter set %d", id, set.Index), "workers")
		}
		select {
		case results <- evaluate(engine, theory, names, set):
		case <-done:
			return
		}
	}
}

func evaluate(engine *hillipop.Engine, theory hillipop.Theory, names []string, set ParameterSet) (ev hillipop.Evaluation) {
	ev = hillipop.Evaluation{Index: set.Index, Values: make([]float64, len(names))}
	defer func() {
		if r := recover(); r != nil {
			ev.Err = fmt.Errorf("recovered from panic on parameter set %d: %v", set.Index, r)
			logger.Error(ev.Err.Error())
			evaluationsTotal.WithLabelValues("failed").Inc()
		}
	}()

	p := hillipop.NuisanceFromValues(set.Values, engine.IndexMaps().NMap())
	values := p.Values()
	for i, name := range names {
		ev.Values[i] = values[name]
	}

	start := time.Now()
	chi2, err := engine.ComputeLikelihood(p, theory)
	evaluationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		ev.Err = err
		evaluationsTotal.WithLabelValues("failed").Inc()
		return ev
	}
	ev.Chi2 = chi2
	ev.PValue = engine.Survival(chi2)
	evaluationsTotal.WithLabelValues("ok").Inc()
	return ev
}

func sendParameterSets(sets []ParameterSet, jobs chan<- ParameterSet, done <-chan struct{}) {
	defer close(jobs)
	for _, set := range sets {
		select {
		case jobs <- set:
		case <-done:
			return
		}
	}
}

// startWorkers evaluates every parameter set on nworkers goroutines and
// sends the evaluations in completion order. Closing done stops the workers.
// The results channel is closed once every worker has returned.
func startWorkers(done <-chan struct{}, nworkers int, engine *hillipop.Engine, theory hillipop.Theory, names []string,
	sets []ParameterSet) <-chan hillipop.Evaluation {
	jobs := make(chan ParameterSet, 100)
	results := make(chan hillipop.Evaluation, 100)

	var wg sync.WaitGroup
	for w := 1; w <= nworkers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(id, engine, theory, names, jobs, results, done)
		}(w)
	}
	go sendParameterSets(sets, jobs, done)
	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}
