package main

import (
	"encoding/json"
	"fmt"
	"os"

	hillipop "github.com/next-exp/hillipop_go/pkg"
)

type Configuration struct {
	ParamFile   string             `json:"param_file"`
	TheoryFile  string             `json:"theory_file"`
	Verbosity   int                `json:"verbosity"`
	FileExt     string             `json:"file_ext"`
	Aplanck     float64            `json:"aplanck"`
	Calibration []float64          `json:"calibration"`
	Foregrounds map[string]float64 `json:"foregrounds"`
	PlotFile    string             `json:"plot_file"`
	StoreResult bool               `json:"store_result"`
	DBDriver    string             `json:"db_driver"`
	DBDSN       string             `json:"db_dsn"`
	Host        string             `json:"host"`
	User        string             `json:"user"`
	Passwd      string             `json:"pass"`
	DBName      string             `json:"dbname"`
}

func LoadConfiguration(filename string) (Configuration, error) {
	var config Configuration

	// Set default values
	config.Verbosity = 0
	config.FileExt = ".h5"
	config.Aplanck = 1
	config.StoreResult = false
	config.DBDriver = "mysql"
	config.Host = "localhost"
	config.User = "hillipop"
	config.DBName = "hillipop"

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	if config.ParamFile == "" {
		return config, &hillipop.ConfigurationError{Key: "param_file", Reason: "missing value"}
	}
	if config.TheoryFile == "" {
		return config, &hillipop.ConfigurationError{Key: "theory_file", Reason: "missing value"}
	}
	return config, nil
}

// Nuisance collects the nuisance parameters of the configuration.
func (c Configuration) Nuisance(nmap int) hillipop.Nuisance {
	values := map[string]float64{"Aplanck": c.Aplanck}
	for m, v := range c.Calibration {
		values[hillipop.CalibrationName(m)] = v
	}
	for name, v := range c.Foregrounds {
		values[name] = v
	}
	return hillipop.NuisanceFromValues(values, nmap)
}

func printConfiguration(config Configuration, logger hillipop.Logger) {
	logger.Info(fmt.Sprintf("Parameter file: %s", config.ParamFile), "config")
	logger.Info(fmt.Sprintf("Theory file: %s", config.TheoryFile), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("File extension: %s", config.FileExt), "config")
	logger.Info(fmt.Sprintf("Aplanck: %g", config.Aplanck), "config")
	logger.Info(fmt.Sprintf("Calibration: %v", config.Calibration), "config")
	logger.Info(fmt.Sprintf("Foregrounds: %v", config.Foregrounds), "config")
	logger.Info(fmt.Sprintf("Plot file: %s", config.PlotFile), "config")
	logger.Info(fmt.Sprintf("Store result: %t", config.StoreResult), "config")
	logger.Info(fmt.Sprintf("DB driver: %s", config.DBDriver), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
}
