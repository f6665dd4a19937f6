package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/canvas-etl/internal/config"
	"github.com/JonMunkholm/canvas-etl/internal/logging"
)

// DefaultBatchSize is the number of inserted rows between periodic commits.
const DefaultBatchSize = 1000

// Importer imports one file at a time into the store.
type Importer struct {
	Connector Connector
	BatchSize int  // Inserts between commits; DefaultBatchSize when <= 0
	Ledger    bool // Record each imported file in import_files
	Metrics   *Metrics
	Now       func() time.Time
}

// NewImporter creates an importer with the default batch size and ledger on.
func NewImporter(conn Connector) *Importer {
	return &Importer{
		Connector: conn,
		BatchSize: DefaultBatchSize,
		Ledger:    true,
	}
}

// ImportFile reads the file at path, maps its columns with the canvas type,
// and writes every row.
//
// Row failures are counted in the result and never stop the file. An error
// is returned only when the file as a whole did not go through: it could not
// be read, the connection or partner resolution failed, or a commit failed.
// A read failure returns before any connection is opened.
func (im *Importer) ImportFile(ctx context.Context, path string, ct config.CanvasType) (*ImportResult, error) {
	start := im.now()
	name := filepath.Base(path)
	logger := logging.WithFields(ctx, "file", name, "canvas_type", ct.Key)
	logger.Info("import started", "partner", ct.PartnerName)

	ds, err := ReadDataset(path)
	if err != nil {
		logger.Error("cannot read file", "error", err, "hint", FormatUserError(err))
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	logger.Info("rows detected", "rows", ds.Len())

	ds = ApplyMapping(ds, ct.Mapping, ct.Fields)

	sess, err := im.Connector.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if err := sess.Close(ctx); err != nil {
			logger.Warn("close session", "error", err)
		}
	}()

	partnerID, err := ResolvePartner(ctx, sess, ct)
	if err != nil {
		return nil, err
	}
	if err := im.commit(ctx, sess); err != nil {
		return nil, fmt.Errorf("commit partner: %w", err)
	}

	res := &ImportResult{
		File:       name,
		CanvasType: ct.Key,
		PartnerID:  partnerID,
		Rows:       ds.Len(),
	}
	batch := im.batchSize()

	for _, rec := range ds.Records() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		var duplicate bool
		err := sess.InRow(ctx, func(st Store) error {
			var err error
			duplicate, err = importRow(ctx, st, rec, partnerID)
			return err
		})

		switch {
		case err != nil:
			code := MapError(err).Code
			res.Errors++
			res.FailedRows = append(res.FailedRows, FailedRow{
				Line:     rec.Line,
				RowIndex: rec.Index,
				Reason:   err.Error(),
				Code:     code,
			})
			im.Metrics.row(RowError)
			logger.Error("row failed",
				"line", rec.Line,
				"row_index", rec.Index,
				"code", code,
				"error", err,
			)
		case duplicate:
			res.Duplicates++
			im.Metrics.row(RowDuplicate)
		default:
			res.Imported++
			im.Metrics.row(RowImported)
			if res.Imported%batch == 0 {
				if err := im.commit(ctx, sess); err != nil {
					return res, fmt.Errorf("commit batch: %w", err)
				}
				res.Batches++
				logger.Info("batch committed", "imported", res.Imported)
			}
		}
	}

	finished := im.now()
	if im.Ledger {
		im.recordFile(ctx, sess, res, start, finished, logger)
	}

	if err := im.commit(ctx, sess); err != nil {
		return res, fmt.Errorf("final commit: %w", err)
	}

	res.Duration = finished.Sub(start)
	im.Metrics.fileDone(res.Duration)

	logger.Info("import finished",
		"imported", res.Imported,
		"duplicates", res.Duplicates,
		"errors", res.Errors,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// importRow writes one row. It reports duplicate=true when the row's cin is
// already stored for the partner; nothing is written in that case.
// An empty cin is never a duplicate.
func importRow(ctx context.Context, st Store, rec Record, partnerID int64) (duplicate bool, err error) {
	cin := strings.TrimSpace(rec.Get(FieldCIN))

	if cin != "" {
		exists, err := st.EmployeeExists(ctx, cin, partnerID)
		if err != nil {
			return false, fmt.Errorf("check duplicate: %w", err)
		}
		if exists {
			return true, nil
		}
	}

	companyID, err := ResolveCompany(ctx, st, rec, partnerID)
	if err != nil {
		return false, err
	}

	err = st.InsertEmployee(ctx, Employee{
		CIN:           cin,
		AdminLastName: strings.TrimSpace(rec.Get(FieldAdminLastName)),
		CompanyID:     companyID,
		PartnerID:     partnerID,
	})
	if err != nil {
		return false, fmt.Errorf("insert employee: %w", err)
	}
	return false, nil
}

// recordFile writes the ledger entry in its own savepoint. A ledger failure
// is logged and does not affect the rows.
func (im *Importer) recordFile(ctx context.Context, sess Session, res *ImportResult, start, finished time.Time, logger *slog.Logger) {
	rec := FileRecord{
		ID:         pgtype.UUID{Bytes: uuid.New(), Valid: true},
		FileName:   res.File,
		CanvasType: res.CanvasType,
		PartnerID:  res.PartnerID,
		Imported:   res.Imported,
		Duplicates: res.Duplicates,
		Errors:     res.Errors,
		Status:     res.Status(),
		StartedAt:  start,
		FinishedAt: finished,
	}

	err := sess.InRow(ctx, func(st Store) error {
		return st.RecordFile(ctx, rec)
	})
	if err != nil {
		logger.Warn("ledger entry not recorded", "error", err)
	}
}

func (im *Importer) commit(ctx context.Context, sess Session) error {
	if err := sess.Commit(ctx); err != nil {
		return err
	}
	im.Metrics.commit()
	return nil
}

func (im *Importer) batchSize() int {
	if im.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return im.BatchSize
}

func (im *Importer) now() time.Time {
	if im.Now != nil {
		return im.Now()
	}
	return time.Now()
}
