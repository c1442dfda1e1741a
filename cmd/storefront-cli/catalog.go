package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/market-v/storefront/internal/app"
	"github.com/market-v/storefront/internal/catalog"
)

// newMigrateCmd creates the migrate subcommand.
func newMigrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply catalog database migrations",
		Long: `Apply pending catalog migrations to the configured database
(SQLite or Postgres). Use --status to report without applying.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			db, err := app.OpenDatabase(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			m := catalog.NewMigrator(db, cfg.Database.Driver)

			if status {
				st, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("migration status: %w", err)
				}
				if outputJSON {
					return printJSON(cmd, st)
				}
				ui.Info("%d of %d migrations applied on %s", len(st.Applied), st.Total, cfg.Database.Driver)
				for _, name := range st.Pending {
					ui.Warning("pending: %s", name)
				}
				return nil
			}

			applied, err := m.Up(ctx)
			if err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			if outputJSON {
				return printJSON(cmd, map[string]interface{}{"applied": applied})
			}
			if len(applied) == 0 {
				ui.Success("Catalog schema is up to date on %s", cfg.Database.Driver)
				return nil
			}
			for _, name := range applied {
				ui.Success("Applied %s", name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "report migration status only")
	return cmd
}

type seedReport struct {
	File    string `json:"file"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// newSeedCmd creates the seed subcommand.
func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed FILE...",
		Short: "Import products from JSON seed files",
		Long: `Seed imports products from one or more JSON files (an array of products).
Files are imported concurrently. Products whose ID already exists are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			reports := seedFiles(ctx, a.Catalog, args)
			ui.Close()

			if outputJSON {
				return printJSON(cmd, reports)
			}

			rows := make([][]string, 0, len(reports))
			failed := 0
			for _, r := range reports {
				state := "ok"
				if r.Error != "" {
					state = r.Error
					failed++
				}
				rows = append(rows, []string{r.File, strconv.Itoa(r.Created), strconv.Itoa(r.Skipped), state})
			}
			ui.Table([]string{"FILE", "CREATED", "SKIPPED", "STATUS"}, rows)

			if failed > 0 {
				return fmt.Errorf("%d of %d seed files failed", failed, len(reports))
			}
			return nil
		},
	}
	return cmd
}

func seedFiles(ctx context.Context, dst catalog.Creator, paths []string) []seedReport {
	reports := make([]seedReport, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		reports[i].File = path

		products, err := catalog.ReadSeedFile(path)
		if err != nil {
			reports[i].Error = err.Error()
			continue
		}
		bar := ui.FileBar(filepath.Base(path), int64(len(products)))

		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()

			res, err := catalog.LoadSeedFile(ctx, path, dst, func() {
				if bar != nil {
					bar.Increment()
				}
			})
			reports[i].Created = res.Created
			reports[i].Skipped = res.Skipped
			if err != nil {
				reports[i].Error = err.Error()
				if bar != nil {
					bar.Abort(false)
				}
				logger.Error().Err(err).Str("file", path).Msg("Seed import failed")
			}
		}(i, path)
	}

	wg.Wait()
	return reports
}

// newSearchCmd creates the search subcommand.
func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the catalog by name, brand or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			products, err := a.Catalog.Search(ctx, args[0])
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if outputJSON {
				if products == nil {
					products = []catalog.Product{}
				}
				return printJSON(cmd, products)
			}
			if len(products) == 0 {
				ui.Warning("No products match %q", args[0])
				return nil
			}
			ui.Table([]string{"ID", "NAME", "BRAND", "SUBCATEGORY", "PRICE"}, productRows(products))
			return nil
		},
	}
	return cmd
}

func productRows(products []catalog.Product) [][]string {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{p.ID, p.Name, p.Brand, p.Subcategory, strconv.FormatFloat(p.Price, 'f', 2, 64)})
	}
	return rows
}
