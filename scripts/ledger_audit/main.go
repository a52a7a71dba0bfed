// Command ledger_audit checks the ledger database for invariant violations.
// It is meant to run out-of-band, e.g. from cron or before a release cut.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type check struct {
	Name  string
	Query string
}

// Each query returns the rows violating the invariant; a clean ledger
// returns zero rows for every check.
var checks = []check{
	{
		Name: "claimed submissions must be graded and passed",
		Query: `SELECT assignment_id, student FROM submissions
            WHERE reward_claimed = TRUE AND (graded = FALSE OR passed = FALSE)`,
	},
	{
		Name: "graded submissions must carry a grading timestamp",
		Query: `SELECT assignment_id, student FROM submissions
            WHERE graded = TRUE AND graded_at IS NULL`,
	},
	{
		Name: "assignment submission_count must match submission rows",
		Query: `SELECT a.id, a.submission_count, COUNT(s.student) AS actual
            FROM assignments a
            LEFT JOIN submissions s ON s.assignment_id = a.id
            GROUP BY a.id, a.submission_count
            HAVING a.submission_count <> COUNT(s.student)`,
	},
	{
		Name: "submission_count must never exceed capacity",
		Query: `SELECT id, submission_count, capacity FROM assignments
            WHERE submission_count > capacity`,
	},
	{
		Name: "reward balances must be non-negative",
		Query: `SELECT student, amount FROM reward_balances WHERE amount < 0`,
	},
	{
		Name: "token balances must be non-negative",
		Query: `SELECT address, balance FROM token_accounts WHERE balance < 0`,
	},
	{
		Name: "every claim must leave a reward.claimed or reward.batch_claimed event",
		Query: `SELECT s.assignment_id, s.student FROM submissions s
            WHERE s.reward_claimed = TRUE
              AND NOT EXISTS (
                SELECT 1 FROM ledger_events e
                WHERE e.student = s.student
                  AND e.kind IN ('reward.claimed', 'reward.batch_claimed'))`,
	},
	{
		Name:  "exactly one settings row must exist",
		Query: `SELECT id FROM ledger_settings WHERE id <> 1`,
	},
	{
		Name: "at least one owner must hold the capability",
		Query: `SELECT 'missing owner' WHERE NOT EXISTS (
            SELECT 1 FROM role_grants WHERE capability = 'owner')`,
	},
}

func main() {
	var (
		dsn     string
		timeout time.Duration
	)
	flag.StringVar(&dsn, "dsn", os.Getenv("DATABASE_URL"), "Postgres connection string")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Per-check query timeout")
	flag.Parse()

	if dsn == "" {
		log.Fatal("no DSN provided; set -dsn or DATABASE_URL")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer db.Close() //nolint:errcheck

	violations := 0
	for _, c := range checks {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		rows, err := db.QueryxContext(ctx, c.Query)
		if err != nil {
			cancel()
			log.Fatalf("check %q failed: %v", c.Name, err)
		}
		count := 0
		for rows.Next() {
			row, err := rows.SliceScan()
			if err != nil {
				rows.Close() //nolint:errcheck
				cancel()
				log.Fatalf("check %q scan failed: %v", c.Name, err)
			}
			if count == 0 {
				fmt.Printf("FAIL  %s\n", c.Name)
			}
			fmt.Printf("      %v\n", row)
			count++
		}
		rows.Close() //nolint:errcheck
		cancel()
		if count == 0 {
			fmt.Printf("ok    %s\n", c.Name)
		} else {
			violations += count
		}
	}

	if violations > 0 {
		fmt.Printf("\n%d invariant violation(s) found\n", violations)
		os.Exit(1)
	}
	fmt.Println("\nledger is consistent")
}
