package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// getOrCreatePartner inserts the partner when the name is new and returns the
// id of whichever row owns the name. The stored type is never overwritten.
const getOrCreatePartner = `-- name: GetOrCreatePartner :one
WITH ins AS (
	INSERT INTO partners (name, type)
	VALUES ($1, $2)
	ON CONFLICT (name) DO NOTHING
	RETURNING id
)
SELECT id FROM ins
UNION ALL
SELECT id FROM partners WHERE name = $1
LIMIT 1
`

type GetOrCreatePartnerParams struct {
	Name string
	Type string
}

func (q *Queries) GetOrCreatePartner(ctx context.Context, arg GetOrCreatePartnerParams) (int64, error) {
	row := q.db.QueryRow(ctx, getOrCreatePartner, arg.Name, arg.Type)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getOrCreateCompany = `-- name: GetOrCreateCompany :one
WITH ins AS (
	INSERT INTO companies (
		company_name, affiliate_number, adhesion_date, affiliation_date,
		adherent_type, mandated_company_name, mandated_affiliate_number, partner_id
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (affiliate_number, partner_id) DO NOTHING
	RETURNING id
)
SELECT id FROM ins
UNION ALL
SELECT id FROM companies WHERE affiliate_number = $2 AND partner_id = $8
LIMIT 1
`

type GetOrCreateCompanyParams struct {
	CompanyName             string
	AffiliateNumber         string
	AdhesionDate            pgtype.Date
	AffiliationDate         pgtype.Date
	AdherentType            string
	MandatedCompanyName     string
	MandatedAffiliateNumber string
	PartnerID               int64
}

func (q *Queries) GetOrCreateCompany(ctx context.Context, arg GetOrCreateCompanyParams) (int64, error) {
	row := q.db.QueryRow(ctx, getOrCreateCompany,
		arg.CompanyName,
		arg.AffiliateNumber,
		arg.AdhesionDate,
		arg.AffiliationDate,
		arg.AdherentType,
		arg.MandatedCompanyName,
		arg.MandatedAffiliateNumber,
		arg.PartnerID,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const employeeExists = `-- name: EmployeeExists :one
SELECT EXISTS (
	SELECT 1 FROM employees WHERE cin = $1 AND partner_id = $2
)
`

type EmployeeExistsParams struct {
	Cin       string
	PartnerID int64
}

func (q *Queries) EmployeeExists(ctx context.Context, arg EmployeeExistsParams) (bool, error) {
	row := q.db.QueryRow(ctx, employeeExists, arg.Cin, arg.PartnerID)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const insertEmployee = `-- name: InsertEmployee :exec
INSERT INTO employees (cin, admin_last_name, company_id, partner_id)
VALUES ($1, $2, $3, $4)
`

type InsertEmployeeParams struct {
	Cin           string
	AdminLastName string
	CompanyID     int64
	PartnerID     int64
}

func (q *Queries) InsertEmployee(ctx context.Context, arg InsertEmployeeParams) error {
	_, err := q.db.Exec(ctx, insertEmployee,
		arg.Cin,
		arg.AdminLastName,
		arg.CompanyID,
		arg.PartnerID,
	)
	return err
}

const insertImportFile = `-- name: InsertImportFile :exec
INSERT INTO import_files (
	id, file_name, canvas_type, partner_id,
	imported, duplicates, errors, status, started_at, finished_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

type InsertImportFileParams struct {
	ID         pgtype.UUID
	FileName   string
	CanvasType string
	PartnerID  int64
	Imported   int32
	Duplicates int32
	Errors     int32
	Status     string
	StartedAt  pgtype.Timestamptz
	FinishedAt pgtype.Timestamptz
}

func (q *Queries) InsertImportFile(ctx context.Context, arg InsertImportFileParams) error {
	_, err := q.db.Exec(ctx, insertImportFile,
		arg.ID,
		arg.FileName,
		arg.CanvasType,
		arg.PartnerID,
		arg.Imported,
		arg.Duplicates,
		arg.Errors,
		arg.Status,
		arg.StartedAt,
		arg.FinishedAt,
	)
	return err
}

const listImportFiles = `-- name: ListImportFiles :many
SELECT id, file_name, canvas_type, partner_id,
	imported, duplicates, errors, status, started_at, finished_at
FROM import_files
ORDER BY started_at DESC
LIMIT $1
`

func (q *Queries) ListImportFiles(ctx context.Context, limit int32) ([]ImportFile, error) {
	rows, err := q.db.Query(ctx, listImportFiles, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ImportFile
	for rows.Next() {
		var i ImportFile
		if err := rows.Scan(
			&i.ID,
			&i.FileName,
			&i.CanvasType,
			&i.PartnerID,
			&i.Imported,
			&i.Duplicates,
			&i.Errors,
			&i.Status,
			&i.StartedAt,
			&i.FinishedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
