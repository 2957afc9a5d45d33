package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	sqlx "github.com/jmoiron/sqlx"
	"github.com/next-exp/hillipop_go/internal/logging"
	hillipop "github.com/next-exp/hillipop_go/pkg"
)

var configuration Configuration

var (
	logger         logging.Logger
	VerbosityLevel int
)

func init() {
	logger = logging.New(os.Stdout, os.Stderr)
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	var err error
	configuration, err = LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	hillipop.SetLogger(logger)
	hillipop.SetVerbosity(configuration.Verbosity)

	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		printConfiguration(configuration, logger)
	}

	if err := run(configuration); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(config Configuration) error {
	pars, err := hillipop.ReadParameterFile(config.ParamFile)
	if err != nil {
		return fmt.Errorf("error reading parameter file: %w", err)
	}
	settings, err := hillipop.NewSettings(pars)
	if err != nil {
		return err
	}

	src := &hillipop.HDF5Source{Ext: config.FileExt}
	start := time.Now()
	engine, err := hillipop.NewEngine(settings, src)
	if err != nil {
		return fmt.Errorf("error building likelihood: %w", err)
	}
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Likelihood ready in %d ms, %d multipoles", time.Since(start).Milliseconds(), engine.NBins())
		logger.Info(message, "main")
	}

	theory, err := hillipop.ReadTheory(config.TheoryFile)
	if err != nil {
		return err
	}

	p := config.Nuisance(engine.IndexMaps().NMap())
	chi2, err := engine.ComputeLikelihood(p, theory)
	if err != nil {
		return fmt.Errorf("error computing likelihood: %w", err)
	}
	pvalue := engine.Survival(chi2)
	logger.Info(fmt.Sprintf("chi2 = %.4f for %d multipoles, p-value %.4g", chi2, engine.NBins(), pvalue), "main")

	fingerprint, err := hillipop.Fingerprint(settings.InputFiles(src.Ext))
	if err != nil {
		return fmt.Errorf("error computing input fingerprint: %w", err)
	}
	if VerbosityLevel > 0 {
		logger.Info(fmt.Sprintf("Input fingerprint: %s", fingerprint), "main")
	}

	if config.PlotFile != "" {
		residuals, err := engine.ComputeResiduals(p, theory)
		if err != nil {
			return err
		}
		if err := plotResiduals(engine, residuals, config.PlotFile); err != nil {
			return fmt.Errorf("error writing plot: %w", err)
		}
		if VerbosityLevel > 0 {
			logger.Info(fmt.Sprintf("Residuals plotted in %s", config.PlotFile), "main")
		}
	}

	if !config.StoreResult {
		return nil
	}
	dbConn, err := openDatabase(config)
	if err != nil {
		return err
	}
	defer dbConn.Close()
	if err := hillipop.CreateSchema(dbConn); err != nil {
		return err
	}

	names := engine.ParameterNames()
	values := p.Values()
	eval := hillipop.Evaluation{Values: make([]float64, len(names)), Chi2: chi2, PValue: pvalue}
	for i, name := range names {
		eval.Values[i] = values[name]
	}
	runID := uuid.NewString()
	if err := hillipop.SaveEvaluations(dbConn, runID, fingerprint, names, []hillipop.Evaluation{eval}); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("Result stored as run %s", runID), "main")
	return nil
}

func openDatabase(config Configuration) (*sqlx.DB, error) {
	if config.DBDriver == "mysql" && config.DBDSN == "" {
		return hillipop.ConnectToDatabase(config.User, config.Passwd, config.Host, config.DBName)
	}
	return hillipop.OpenDatabase(config.DBDriver, config.DBDSN)
}
