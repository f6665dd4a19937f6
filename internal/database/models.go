package database

import "github.com/jackc/pgx/v5/pgtype"

type ImportFile struct {
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
