package hillipop

import (
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// ConnectToDatabase opens the MySQL results database.
func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	return OpenDatabase("mysql", dbURI)
}

// OpenDatabase connects to a results database with one of the registered
// drivers: "mysql", "pgx" or "sqlite".
func OpenDatabase(driver string, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		// an in-memory sqlite database lives in a single connection
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

const evaluationsSchema = `CREATE TABLE IF NOT EXISTS Evaluations (
	RunID VARCHAR(36) NOT NULL,
	Idx INTEGER NOT NULL,
	Chi2 DOUBLE PRECISION NOT NULL,
	PValue DOUBLE PRECISION NOT NULL,
	Failed INTEGER NOT NULL,
	Parameters TEXT NOT NULL,
	Fingerprint VARCHAR(64) NOT NULL,
	PRIMARY KEY (RunID, Idx)
)`

func CreateSchema(db *sqlx.DB) error {
	if _, err := db.Exec(evaluationsSchema); err != nil {
		return fmt.Errorf("error creating evaluations table: %w", err)
	}
	return nil
}

type EvaluationEntry struct {
	RunID       string  `db:"RunID"`
	Idx         int     `db:"Idx"`
	Chi2        float64 `db:"Chi2"`
	PValue      float64 `db:"PValue"`
	Failed      int     `db:"Failed"`
	Parameters  string  `db:"Parameters"`
	Fingerprint string  `db:"Fingerprint"`
}

// Values decodes the parameter values of the entry.
func (e EvaluationEntry) Values() (map[string]float64, error) {
	values := make(map[string]float64)
	if err := json.Unmarshal([]byte(e.Parameters), &values); err != nil {
		return nil, fmt.Errorf("error decoding parameters of evaluation %d: %w", e.Idx, err)
	}
	return values, nil
}

const insertEvaluation = `INSERT INTO Evaluations (RunID, Idx, Chi2, PValue, Failed, Parameters, Fingerprint)
	VALUES (:RunID, :Idx, :Chi2, :PValue, :Failed, :Parameters, :Fingerprint)`

// SaveEvaluations stores a batch of evaluations of run runID in one
// transaction. names gives the parameter name of each evaluation value.
func SaveEvaluations(db *sqlx.DB, runID string, fingerprint string, names []string, evals []Evaluation) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	for _, ev := range evals {
		if len(ev.Values) != len(names) {
			tx.Rollback()
			return fmt.Errorf("evaluation %d has %d parameter values for %d names", ev.Index, len(ev.Values), len(names))
		}
		values := make(map[string]float64, len(names))
		for i, name := range names {
			values[name] = ev.Values[i]
		}
		params, err := json.Marshal(values)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error encoding parameters of evaluation %d: %w", ev.Index, err)
		}

		entry := EvaluationEntry{
			RunID:       runID,
			Idx:         ev.Index,
			Chi2:        ev.Chi2,
			PValue:      ev.PValue,
			Parameters:  string(params),
			Fingerprint: fingerprint,
		}
		if ev.Err != nil {
			entry.Failed = 1
		}
		if _, err := tx.NamedExec(insertEvaluation, entry); err != nil {
			tx.Rollback()
			return fmt.Errorf("error inserting evaluation %d: %w", ev.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing evaluations: %w", err)
	}
	if verbosity > 1 {
		logger.Info(fmt.Sprintf("Stored %d evaluations of run %s", len(evals), runID), "database")
	}
	return nil
}

// LoadEvaluations returns the stored evaluations of a run ordered by index.
func LoadEvaluations(db *sqlx.DB, runID string) ([]EvaluationEntry, error) {
	query := db.Rebind("SELECT RunID, Idx, Chi2, PValue, Failed, Parameters, Fingerprint FROM Evaluations WHERE RunID = ? ORDER BY Idx")
	if verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s", query), "database")
	}
	entries := []EvaluationEntry{}
	if err := db.Select(&entries, query, runID); err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	return entries, nil
}
