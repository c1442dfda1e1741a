package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/market-v/storefront/internal/comparison"
	"github.com/market-v/storefront/internal/domain"
)

// newCompareCmd creates the compare subcommand.
func newCompareCmd() *cobra.Command {
	var subcategory string

	cmd := &cobra.Command{
		Use:   "compare PRODUCT1_ID PRODUCT2_ID",
		Short: "Compare two products of the same subcategory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			stop := ui.Typing("Comparing products...")
			res, err := a.Comparison.Compare(ctx, comparison.Request{
				ProductAID:    args[0],
				ProductBID:    args[1],
				SubcategoryID: subcategory,
			})
			stop()
			if err != nil {
				return err
			}

			if outputJSON {
				return printJSON(cmd, map[string]string{
					"product1":   res.ProductAName,
					"product2":   res.ProductBName,
					"comparison": res.Narrative,
				})
			}
			ui.Step("%s vs %s", res.ProductAName, res.ProductBName)
			fmt.Fprintln(cmd.OutOrStdout(), res.Narrative)
			return nil
		},
	}

	cmd.Flags().StringVar(&subcategory, "subcategory", "", "require both products to be in this subcategory")
	return cmd
}

type batchPair struct {
	A, B string
}

type batchResult struct {
	Product1   string `json:"product1Id"`
	Product2   string `json:"product2Id"`
	Comparison string `json:"comparison,omitempty"`
	Error      string `json:"error,omitempty"`
}

// newCompareBatchCmd creates the compare-batch subcommand.
func newCompareBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare-batch FILE",
		Short: "Compare product pairs listed in a CSV file",
		Long: `compare-batch reads "product1Id,product2Id" rows (no header) and compares
each pair in order. Results are cached, so repeated pairs are cheap.
Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := readPairs(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
			defer cancel()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			bar := ui.BatchBar(len(pairs), "Comparing")
			results := make([]batchResult, 0, len(pairs))
			failed := 0
			for _, p := range pairs {
				r := batchResult{Product1: p.A, Product2: p.B}
				res, err := a.Comparison.Compare(ctx, comparison.Request{ProductAID: p.A, ProductBID: p.B})
				if err != nil {
					r.Error = domain.UserMessage(err)
					failed++
				} else {
					r.Comparison = res.Narrative
				}
				results = append(results, r)
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			if outputJSON {
				return printJSON(cmd, results)
			}
			for _, r := range results {
				if r.Error != "" {
					ui.Warning("%s vs %s: %s", r.Product1, r.Product2, r.Error)
					continue
				}
				ui.Step("%s vs %s", r.Product1, r.Product2)
				fmt.Fprintln(cmd.OutOrStdout(), r.Comparison)
			}
			ui.Info("%d compared, %d failed", len(results)-failed, failed)
			return nil
		},
	}
	return cmd
}

func readPairs(stdin io.Reader, path string) ([]batchPair, error) {
	in := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open pairs file: %w", err)
		}
		defer f.Close()
		in = f
	}

	r := csv.NewReader(in)
	r.FieldsPerRecord = 2
	r.Comment = '#'
	r.TrimLeadingSpace = true

	var pairs []batchPair
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse pairs: %w", err)
		}
		pairs = append(pairs, batchPair{A: strings.TrimSpace(rec[0]), B: strings.TrimSpace(rec[1])})
	}
	if len(pairs) == 0 {
		return nil, errors.New("no product pairs in input")
	}
	return pairs, nil
}
