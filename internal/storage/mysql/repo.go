package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/topspinj/find-my-daycare/internal/domain"
)

const upsertBatchSize = 200

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ReplaceSnapshot upserts the full record set under the given tag, then
// sweeps rows from older snapshots, all in one transaction. Readers either
// see the previous complete snapshot or the new one.
func (r *Repo) ReplaceSnapshot(ctx context.Context, tag string, records []domain.DaycareRecord) error {
	if tag == "" {
		return fmt.Errorf("snapshot tag is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := upsertBatch(ctx, tx, tag, records[start:end]); err != nil {
			return fmt.Errorf("upsert batch at %d: %w", start, err)
		}
	}

	if _, err := tx.ExecContext(ctx, deleteStaleSQL, tag); err != nil {
		return fmt.Errorf("sweep stale records: %w", err)
	}
	return tx.Commit()
}

func upsertBatch(ctx context.Context, tx *sql.Tx, tag string, records []domain.DaycareRecord) error {
	placeholders := make([]string, 0, len(records))
	args := make([]any, 0, len(records)*16)
	for _, d := range records {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			d.ID, d.Name, d.Address, d.PostalCode, d.Phone, d.Lat, d.Lon,
			d.InfantSpaces, d.ToddlerSpaces, d.PreschoolSpaces, d.KindergartenSpaces, d.SchoolAgeSpaces, d.TotalSpaces,
			d.Subsidy, d.CWELCC, tag,
		)
	}
	stmt := upsertDaycaresPrefix + strings.Join(placeholders, ",") + upsertDaycaresOnDup
	_, err := tx.ExecContext(ctx, stmt, args...)
	return err
}

// ListAll returns the most recent stored snapshot. The tag comes from the
// rows themselves; after ReplaceSnapshot commits there is only ever one.
func (r *Repo) ListAll(ctx context.Context) (string, []domain.DaycareRecord, error) {
	rows, err := r.db.QueryContext(ctx, listAllSQL)
	if err != nil {
		return "", nil, err
	}
	defer rows.Close()

	var tag string
	var out []domain.DaycareRecord
	for rows.Next() {
		var d domain.DaycareRecord
		var rowTag string
		if err := rows.Scan(
			&d.ID, &d.Name, &d.Address, &d.PostalCode, &d.Phone, &d.Lat, &d.Lon,
			&d.InfantSpaces, &d.ToddlerSpaces, &d.PreschoolSpaces, &d.KindergartenSpaces, &d.SchoolAgeSpaces, &d.TotalSpaces,
			&d.Subsidy, &d.CWELCC, &rowTag,
		); err != nil {
			return "", nil, err
		}
		tag = rowTag
		out = append(out, d)
	}
	return tag, out, rows.Err()
}
