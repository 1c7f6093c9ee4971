package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Upsert describes a batch write that replaces existing rows on key
// collision. Rows travel through a staging temp table via COPY, so a batch
// of report runs is one round trip regardless of size.
type Upsert struct {
	Table   string   // target table, optionally schema-qualified
	Columns []string // insert columns, in row order
	Keys    []string // unique-constraint columns driving conflict resolution
}

// Run executes the upsert in one transaction: COPY into a session temp table,
// then INSERT ... ON CONFLICT into the target. Returns the rows written.
func (u Upsert) Run(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := u.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx)

	staging := u.stagingTable()
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{staging}.Sanitize(),
		sanitizeTable(u.Table),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: stage %s", u.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{staging}, u.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into %s staging", u.Table)
	}

	tag, err := tx.Exec(ctx, u.statement(staging))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", u.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func (u Upsert) validate() error {
	if u.Table == "" {
		return eris.New("db: upsert: no table specified")
	}
	if len(u.Columns) == 0 {
		return eris.New("db: upsert: no columns specified")
	}
	if len(u.Keys) == 0 {
		return eris.New("db: upsert: no conflict keys specified")
	}
	return nil
}

func (u Upsert) stagingTable() string {
	return strings.ReplaceAll(u.Table, ".", "_") + "_staging"
}

// statement builds the merge from staging into the target. Every non-key
// column is overwritten from the incoming row; with no non-key columns the
// conflict is a no-op.
func (u Upsert) statement(staging string) string {
	keys := make(map[string]bool, len(u.Keys))
	for _, k := range u.Keys {
		keys[k] = true
	}

	var assigns []string
	for _, c := range u.Columns {
		if keys[c] {
			continue
		}
		q := pgx.Identifier{c}.Sanitize()
		assigns = append(assigns, q+" = EXCLUDED."+q)
	}
	action := "DO NOTHING"
	if len(assigns) > 0 {
		action = "DO UPDATE SET " + strings.Join(assigns, ", ")
	}

	cols := quoteAndJoin(u.Columns)
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		sanitizeTable(u.Table),
		cols,
		cols,
		pgx.Identifier{staging}.Sanitize(),
		quoteAndJoin(u.Keys),
		action,
	)
}

// sanitizeTable quotes a table name, handling schema qualification.
func sanitizeTable(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
