package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Canonical field names. Canvas type mappings translate partner column
// headers into these names.
const (
	FieldCompanyName             = "company_name"
	FieldAffiliateNumber         = "affiliate_number"
	FieldAdhesionDate            = "adhesion_date"
	FieldAffiliationDate         = "affiliation_date"
	FieldAdherentType            = "adherent_type"
	FieldMandatedCompanyName     = "mandated_company_name"
	FieldMandatedAffiliateNumber = "mandated_affiliate_number"
	FieldCIN                     = "cin"
	FieldAdminLastName           = "admin_last_name"
)

// CanonicalFields lists every field the importer reads from a mapped row.
var CanonicalFields = []string{
	FieldCompanyName,
	FieldAffiliateNumber,
	FieldAdhesionDate,
	FieldAffiliationDate,
	FieldAdherentType,
	FieldMandatedCompanyName,
	FieldMandatedAffiliateNumber,
	FieldCIN,
	FieldAdminLastName,
}

// Company is the company a row belongs to, as it is written on first
// encounter. Later rows with the same key never update it.
type Company struct {
	CompanyName             string
	AffiliateNumber         string
	AdhesionDate            pgtype.Date
	AffiliationDate         pgtype.Date
	AdherentType            string
	MandatedCompanyName     string
	MandatedAffiliateNumber string
	PartnerID               int64
}

// Employee is one imported row.
type Employee struct {
	CIN           string
	AdminLastName string
	CompanyID     int64
	PartnerID     int64
}

// File statuses recorded in the processing ledger.
const (
	FileStatusImported = "imported"
	FileStatusPartial  = "partial"
)

// FileRecord is the ledger entry written with the final commit of a file.
type FileRecord struct {
	ID         pgtype.UUID
	FileName   string
	CanvasType string
	PartnerID  int64
	Imported   int
	Duplicates int
	Errors     int
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store is the set of writes and lookups a row needs.
type Store interface {
	// ResolvePartner returns the id of the partner called name, creating it
	// with typ when absent. The type of an existing partner is never changed.
	ResolvePartner(ctx context.Context, name, typ string) (int64, error)

	// ResolveCompany returns the id of the company keyed by
	// (AffiliateNumber, PartnerID), creating it from c when absent.
	ResolveCompany(ctx context.Context, c Company) (int64, error)

	// EmployeeExists reports whether (cin, partnerID) is already stored.
	EmployeeExists(ctx context.Context, cin string, partnerID int64) (bool, error)

	InsertEmployee(ctx context.Context, e Employee) error
	RecordFile(ctx context.Context, rec FileRecord) error
}

// Session is one connection and its open transaction, used for a single file.
type Session interface {
	Store

	// InRow runs fn in a savepoint. When fn fails, every write fn made is
	// undone and earlier uncommitted writes are kept.
	InRow(ctx context.Context, fn func(Store) error) error

	// Commit makes all writes so far durable and starts a new transaction.
	Commit(ctx context.Context) error

	// Close rolls back anything uncommitted and releases the connection.
	Close(ctx context.Context) error
}

// Connector opens sessions. One session is opened per imported file.
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

// FailedRow contains information about a row that failed to import.
type FailedRow struct {
	Line     int    // 1-indexed line in the source file
	RowIndex int    // 0-indexed data row, header excluded
	Reason   string // Technical error message
	Code     string // Support code from MapError
}

// ImportResult contains the outcome of importing one file.
type ImportResult struct {
	File       string
	CanvasType string
	PartnerID  int64
	Rows       int
	Imported   int
	Duplicates int
	Errors     int
	Batches    int // Periodic commits, the final commit excluded
	FailedRows []FailedRow
	Duration   time.Duration
}

// Status returns the ledger status for the result.
func (r *ImportResult) Status() string {
	if r.Errors > 0 {
		return FileStatusPartial
	}
	return FileStatusImported
}
