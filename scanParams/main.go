package main

import (
	"os"

	"github.com/alecthomas/kong"
	sqlx "github.com/jmoiron/sqlx"
	"github.com/next-exp/hillipop_go/internal/logging"
	hillipop "github.com/next-exp/hillipop_go/pkg"
)

var logger logging.Logger

var VerbosityLevel int

// CLI defines the command-line interface using Kong
var CLI struct {
	Verbosity int `name:"verbosity" short:"v" default:"0" help:"Verbosity level"`

	Grid    GridCmd    `cmd:"" help:"Evaluate the likelihood over a grid of nuisance parameters"`
	Ranges  RangesCmd  `cmd:"" help:"Write a multipole-range file"`
	Results ResultsCmd `cmd:"" help:"List the stored evaluations of a scan"`
}

// DatabaseFlags select the results database.
type DatabaseFlags struct {
	Driver string `name:"driver" default:"sqlite" enum:"mysql,pgx,sqlite" help:"Database driver (mysql, pgx, sqlite)"`
	DSN    string `name:"dsn" help:"Data source name; results are not stored when empty"`
}

func (d DatabaseFlags) open() (*sqlx.DB, error) {
	db, err := hillipop.OpenDatabase(d.Driver, d.DSN)
	if err != nil {
		return nil, err
	}
	if err := hillipop.CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func init() {
	logger = logging.New(os.Stdout, os.Stderr)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("scanParams"),
		kong.Description("Scans of the high-l cross-spectra likelihood"),
		kong.UsageOnError(),
	)

	VerbosityLevel = CLI.Verbosity
	hillipop.SetLogger(logger)
	hillipop.SetVerbosity(VerbosityLevel)

	if err := ctx.Run(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
