// Command seed loads provisioning CSVs (schools, buses, users, grants) into
// postgres. Safe to re-run; rows are upserted on their natural keys inside
// one transaction.
//
//	seed --data ./seed-data
//	seed --data ./seed-data --only run_types,school_bus_run_types
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bustracker-app/bustracker/internal/config"
	"github.com/bustracker-app/bustracker/internal/database"
	"github.com/bustracker-app/bustracker/internal/seed"
)

func main() {
	dataDir := flag.String("data", "scripts/seed/data", "directory containing the seed CSV files")
	only := flag.String("only", "", "comma-separated subset of files to load (default: all)")
	flag.Parse()

	if err := run(*dataDir, *only); err != nil {
		fmt.Fprintln(os.Stderr, "seed failed:", err)
		os.Exit(1)
	}
}

func run(dataDir, onlyRaw string) error {
	targets, err := seed.ParseOnly(onlyRaw)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg.DB.DSN())
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	if err := database.Migrate(db); err != nil {
		return err
	}

	results, err := seed.Run(db, dataDir, targets)
	if err != nil {
		return err
	}

	fmt.Println("Seed complete.")
	for _, target := range seed.Targets {
		res, ok := results[target]
		if !ok {
			continue
		}
		fmt.Printf("%s: inserted=%d updated=%d rows=%d\n", target, res.Inserted, res.Updated, res.Rows)
	}
	return nil
}
