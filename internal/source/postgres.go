package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/postgres"
)

// Postgres stores aliases in a two-column table:
//
//	CREATE TABLE aliases (
//	    alias TEXT NOT NULL,
//	    value TEXT NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    PRIMARY KEY (alias, value)
//	);
type Postgres struct {
	client *postgres.Client
	table  string
	logger *slog.Logger
}

func NewPostgres(client *postgres.Client, table string) *Postgres {
	return &Postgres{
		client: client,
		table:  pq.QuoteIdentifier(table),
		logger: slog.Default().With("component", "source", "table", table),
	}
}

func (p *Postgres) Name() string { return "postgres:" + p.table }

// Load streams the table ordered by alias, so the staging order is stable
// across runs.
func (p *Postgres) Load(ctx context.Context, fn func(alias, value string) error) (int, error) {
	rows, err := p.client.DB.QueryContext(ctx,
		fmt.Sprintf(`SELECT alias, value FROM %s ORDER BY alias, value`, p.table))
	if err != nil {
		return 0, fmt.Errorf("querying aliases: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var alias, value string
		if err := rows.Scan(&alias, &value); err != nil {
			return n, fmt.Errorf("scanning alias row: %w", err)
		}
		if err := fn(alias, value); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("iterating alias rows: %w", err)
	}
	p.logger.Info("aliases loaded", "pairs", n)
	return n, nil
}

// Apply writes a batch of changes in one transaction. Upserting an existing
// pair and deleting a missing one are both no-ops.
func (p *Postgres) Apply(ctx context.Context, events []ingestion.AliasEvent) error {
	upsert := fmt.Sprintf(
		`INSERT INTO %s (alias, value) VALUES ($1, $2) ON CONFLICT (alias, value) DO UPDATE SET updated_at = NOW()`,
		p.table)
	del := fmt.Sprintf(`DELETE FROM %s WHERE alias = $1 AND value = $2`, p.table)

	return p.client.InTx(ctx, func(tx *sql.Tx) error {
		for _, ev := range events {
			query := upsert
			if ev.Op == ingestion.OpDelete {
				query = del
			}
			if _, err := tx.ExecContext(ctx, query, ev.Alias, ev.Value); err != nil {
				return fmt.Errorf("applying %s %q: %w", ev.Op, ev.Alias, err)
			}
		}
		return nil
	})
}
