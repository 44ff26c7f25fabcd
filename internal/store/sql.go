package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/lox/pokertable/internal/game"
)

var (
	//go:embed migrations/sqlite.sql
	sqliteSchema string
	//go:embed migrations/postgres.sql
	postgresSchema string
)

// SQLStore records hands in SQLite or PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenSQL connects and applies the schema.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// One connection: SQLite serializes writers, and an in-memory
		// database exists only on the connection that created it.
		db.SetMaxOpenConns(1)
	}
	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	schema := sqliteSchema
	if s.driver == "postgres" {
		schema = postgresSchema
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply %s schema: %w", s.driver, err)
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (s *SQLStore) rebind(q string) string {
	if s.driver != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) RecordHand(ctx context.Context, res *game.HandResult) error {
	h := FromResult(res)
	board, err := json.Marshal(h.Board)
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}
	reveals := h.Reveals
	if reveals == nil {
		reveals = []game.Reveal{}
	}
	revealsJSON, err := json.Marshal(reveals)
	if err != nil {
		return fmt.Errorf("marshal reveals: %w", err)
	}

	actions, err := json.Marshal(h.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	_, err = tx.ExecContext(ctx, s.rebind(`
INSERT INTO hands (hand_id, table_id, hand_no, board, pot, showdown, reveals, actions, started_at, ended_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`),
		h.ID, h.TableID, h.Number, string(board), h.Pot, h.Showdown, string(revealsJSON), string(actions),
		h.StartedAt.UnixNano(), h.EndedAt.UnixNano(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrHandExists, h.ID)
	}
	if err != nil {
		return fmt.Errorf("insert hand: %w", err)
	}

	for _, seat := range h.Seats {
		_, err := tx.ExecContext(ctx, s.rebind(`
INSERT INTO hand_seats (hand_id, player_id, address, seat, starting_stack, ending_stack)
VALUES (?,?,?,?,?,?)`),
			h.ID, seat.PlayerID, seat.Address, seat.Seat, seat.StartingStack, seat.EndingStack,
		)
		if err != nil {
			return fmt.Errorf("insert seat %s: %w", seat.PlayerID, err)
		}
	}
	for _, w := range h.Winners {
		_, err := tx.ExecContext(ctx, s.rebind(`
INSERT INTO hand_winners (hand_id, player_id, seat, amount) VALUES (?,?,?,?)`),
			h.ID, w.PlayerID, w.Seat, w.Amount,
		)
		if err != nil {
			return fmt.Errorf("insert winner %s: %w", w.PlayerID, err)
		}
	}
	return tx.Commit()
}

const selectHand = `
SELECT hand_id, table_id, hand_no, board, pot, showdown, reveals, actions, started_at, ended_at
FROM hands`

func (s *SQLStore) GetHand(ctx context.Context, id string) (Hand, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(selectHand+` WHERE hand_id = ?`), id)
	h, err := scanHand(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Hand{}, fmt.Errorf("%w: %s", ErrHandNotFound, id)
	}
	if err != nil {
		return Hand{}, err
	}
	if err := s.loadDetails(ctx, &h); err != nil {
		return Hand{}, err
	}
	return h, nil
}

// ListHands returns the table's most recent hands first. A limit of zero or
// less returns all of them.
func (s *SQLStore) ListHands(ctx context.Context, tableID string, limit int) ([]Hand, error) {
	q := selectHand + ` WHERE table_id = ? ORDER BY hand_id DESC`
	args := []any{tableID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list hands: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hands []Hand
	for rows.Next() {
		h, err := scanHand(rows)
		if err != nil {
			return nil, err
		}
		hands = append(hands, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range hands {
		if err := s.loadDetails(ctx, &hands[i]); err != nil {
			return nil, err
		}
	}
	return hands, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHand(row scanner) (Hand, error) {
	var (
		h                 Hand
		board, reveals    []byte
		actions           []byte
		started, finished int64
	)
	if err := row.Scan(&h.ID, &h.TableID, &h.Number, &board, &h.Pot, &h.Showdown, &reveals, &actions, &started, &finished); err != nil {
		return Hand{}, err
	}
	if err := json.Unmarshal(board, &h.Board); err != nil {
		return Hand{}, fmt.Errorf("decode board of %s: %w", h.ID, err)
	}
	if err := json.Unmarshal(reveals, &h.Reveals); err != nil {
		return Hand{}, fmt.Errorf("decode reveals of %s: %w", h.ID, err)
	}
	if len(h.Reveals) == 0 {
		h.Reveals = nil
	}
	if err := json.Unmarshal(actions, &h.Actions); err != nil {
		return Hand{}, fmt.Errorf("decode actions of %s: %w", h.ID, err)
	}
	h.StartedAt = time.Unix(0, started).UTC()
	h.EndedAt = time.Unix(0, finished).UTC()
	return h, nil
}

func (s *SQLStore) loadDetails(ctx context.Context, h *Hand) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT player_id, address, seat, starting_stack, ending_stack
FROM hand_seats WHERE hand_id = ? ORDER BY seat`), h.ID)
	if err != nil {
		return fmt.Errorf("load seats of %s: %w", h.ID, err)
	}
	for rows.Next() {
		var seat game.SeatResult
		if err := rows.Scan(&seat.PlayerID, &seat.Address, &seat.Seat, &seat.StartingStack, &seat.EndingStack); err != nil {
			_ = rows.Close()
			return err
		}
		h.Seats = append(h.Seats, seat)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, s.rebind(`
SELECT player_id, seat, amount FROM hand_winners WHERE hand_id = ? ORDER BY seat`), h.ID)
	if err != nil {
		return fmt.Errorf("load winners of %s: %w", h.ID, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var w game.Winner
		if err := rows.Scan(&w.PlayerID, &w.Seat, &w.Amount); err != nil {
			return err
		}
		h.Winners = append(h.Winners, w)
	}
	return rows.Err()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
