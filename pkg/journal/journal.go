// Package journal appends fills to a SQL table for post-run analysis. The desk
// writes through it on every fill; journal errors are reported to the caller
// and never interrupt matching.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/common"
)

// Dialect selects the bind-parameter style of the underlying driver.
type Dialect int

const (
	DialectDuckDB Dialect = iota
	DialectPostgres
)

const fillsTable = "paper_fills"

// FillRecord is one journaled fill row. Prices are stored as float64 for
// analytical queries; the portfolio remains the decimal source of truth.
type FillRecord struct {
	Ts         time.Time
	OrderId    string
	Instrument string
	Side       string
	Quantity   float64
	Price      float64
	Fee        float64
	IsMaker    bool
	Source     string
}

type Journal struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *Journal {
	return &Journal{db: db, dialect: dialect}
}

func (j *Journal) CreateTable(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMP NOT NULL,
		order_id VARCHAR NOT NULL,
		instrument VARCHAR NOT NULL,
		side VARCHAR NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		fee DOUBLE PRECISION NOT NULL,
		is_maker BOOLEAN NOT NULL,
		source VARCHAR
	)`, fillsTable)

	if _, err := j.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("unable to create %s table: %w", fillsTable, err)
	}
	return nil
}

func (j *Journal) Append(ctx context.Context, fill common.OrderFilled) error {
	query := fmt.Sprintf(`
	INSERT INTO %s (ts, order_id, instrument, side, quantity, price, fee, is_maker, source)
	VALUES (%s)`, fillsTable, j.placeholders(9))

	qty, _ := fill.FillQuantity.Float64()
	price, _ := fill.FillPrice.Float64()
	fee, _ := fill.Fee.Float64()

	_, err := j.db.ExecContext(
		ctx,
		query,
		fill.TimeStamp,
		fill.Order.Id.String(),
		fill.Order.Instrument.Key(),
		fill.Order.Side.String(),
		qty,
		price,
		fee,
		fill.IsMaker,
		fill.Source,
	)
	if err != nil {
		return fmt.Errorf("unable to append fill: %w", err)
	}
	return nil
}

// ReadFills streams journaled fills for one instrument within a time window,
// oldest first.
func (j *Journal) ReadFills(ctx context.Context, instrument common.InstrumentId, from, to time.Time, handler func(FillRecord) error) error {
	query := fmt.Sprintf(`
	SELECT ts, order_id, instrument, side, quantity, price, fee, is_maker, source
	FROM %s
	WHERE instrument = %s AND ts BETWEEN %s AND %s
	ORDER BY ts`, fillsTable, j.placeholder(1), j.placeholder(2), j.placeholder(3))

	rows, err := j.db.QueryContext(ctx, query, instrument.Key(), from, to)
	if err != nil {
		return fmt.Errorf("error querying fills: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var rec FillRecord
		var source sql.NullString
		if err := rows.Scan(&rec.Ts, &rec.OrderId, &rec.Instrument, &rec.Side,
			&rec.Quantity, &rec.Price, &rec.Fee, &rec.IsMaker, &source); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}
		rec.Source = source.String
		if err := handler(rec); err != nil {
			return fmt.Errorf("error processing fill: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error scanning rows: %w", err)
	}
	return nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) placeholder(n int) string {
	if j.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (j *Journal) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = j.placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}
