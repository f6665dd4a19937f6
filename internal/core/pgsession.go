package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/canvas-etl/internal/database"
)

// PgConnector opens one PostgreSQL connection per session. No pool is kept:
// a run holds at most one connection, for the duration of one file.
type PgConnector struct {
	URL            string
	ConnectTimeout time.Duration
}

// Connect opens a connection and begins the session's first transaction.
func (c *PgConnector) Connect(ctx context.Context) (Session, error) {
	cfg, err := pgx.ParseConfig(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if c.ConnectTimeout > 0 {
		cfg.ConnectTimeout = c.ConnectTimeout
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	return &pgSession{
		pgStore: pgStore{q: database.New(tx)},
		conn:    conn,
		tx:      tx,
	}, nil
}

type pgSession struct {
	pgStore
	conn *pgx.Conn
	tx   pgx.Tx
}

const savepointName = "import_row"

// InRow runs fn between SAVEPOINT and RELEASE; on failure the savepoint is
// rolled back so the transaction stays usable for the next row.
func (s *pgSession) InRow(ctx context.Context, fn func(Store) error) error {
	if _, err := s.tx.Exec(ctx, "SAVEPOINT "+savepointName); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}

	if err := fn(s.pgStore); err != nil {
		if _, rbErr := s.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepointName); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback savepoint: %w", rbErr))
		}
		return err
	}

	if _, err := s.tx.Exec(ctx, "RELEASE SAVEPOINT "+savepointName); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (s *pgSession) Commit(ctx context.Context) error {
	if err := s.tx.Commit(ctx); err != nil {
		return err
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.tx = tx
	s.pgStore = pgStore{q: s.q.WithTx(tx)}
	return nil
}

func (s *pgSession) Close(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	if err := s.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		s.conn.Close(ctx)
		return fmt.Errorf("rollback: %w", err)
	}
	return s.conn.Close(ctx)
}

// pgStore maps Store onto the generated queries.
type pgStore struct {
	q *database.Queries
}

func (p pgStore) ResolvePartner(ctx context.Context, name, typ string) (int64, error) {
	return p.q.GetOrCreatePartner(ctx, database.GetOrCreatePartnerParams{
		Name: name,
		Type: typ,
	})
}

func (p pgStore) ResolveCompany(ctx context.Context, c Company) (int64, error) {
	return p.q.GetOrCreateCompany(ctx, database.GetOrCreateCompanyParams{
		CompanyName:             c.CompanyName,
		AffiliateNumber:         c.AffiliateNumber,
		AdhesionDate:            c.AdhesionDate,
		AffiliationDate:         c.AffiliationDate,
		AdherentType:            c.AdherentType,
		MandatedCompanyName:     c.MandatedCompanyName,
		MandatedAffiliateNumber: c.MandatedAffiliateNumber,
		PartnerID:               c.PartnerID,
	})
}

func (p pgStore) EmployeeExists(ctx context.Context, cin string, partnerID int64) (bool, error) {
	return p.q.EmployeeExists(ctx, database.EmployeeExistsParams{
		Cin:       cin,
		PartnerID: partnerID,
	})
}

func (p pgStore) InsertEmployee(ctx context.Context, e Employee) error {
	return p.q.InsertEmployee(ctx, database.InsertEmployeeParams{
		Cin:           e.CIN,
		AdminLastName: e.AdminLastName,
		CompanyID:     e.CompanyID,
		PartnerID:     e.PartnerID,
	})
}

func (p pgStore) RecordFile(ctx context.Context, rec FileRecord) error {
	return p.q.InsertImportFile(ctx, database.InsertImportFileParams{
		ID:         rec.ID,
		FileName:   rec.FileName,
		CanvasType: rec.CanvasType,
		PartnerID:  rec.PartnerID,
		Imported:   int32(rec.Imported),
		Duplicates: int32(rec.Duplicates),
		Errors:     int32(rec.Errors),
		Status:     rec.Status,
		StartedAt:  pgtype.Timestamptz{Time: rec.StartedAt, Valid: true},
		FinishedAt: pgtype.Timestamptz{Time: rec.FinishedAt, Valid: true},
	})
}
