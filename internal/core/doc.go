// Package core provides the business logic for partner file imports.
//
// The package holds the import pipeline independent of the store driver and
// the command line: a [Connector] hands out one [Session] per file, and every
// database operation goes through that session, so the pipeline can run
// against PostgreSQL or an in-memory fake without modification.
//
// # Pipeline
//
// A run moves each intake file through the same steps:
//
//  1. [Runner.Run] lists the intake directory and classifies each file by
//     case-insensitive prefix against the configured canvas types.
//  2. [Importer.ImportFile] reads the file with [ReadDataset] and renames its
//     columns with [ApplyMapping].
//  3. The partner is resolved once per file and committed immediately.
//  4. Each row is checked for a duplicate (cin, partner) pair, its company is
//     resolved, and an employee is inserted. Every row runs in its own
//     savepoint so a failing row never poisons the surrounding transaction.
//  5. Writes are committed every [DefaultBatchSize] inserts and at file end.
//  6. The runner renames the file into the archive directory with
//     [ArchiveName], which removes it from every later intake scan.
//
// # Failure Model
//
// Row failures are counted and recorded in [ImportResult.FailedRows]; they
// never stop the file. A file that cannot be read, or whose connection,
// partner resolution, or commit fails, is left in the intake directory.
// A crash, or a failed periodic or final commit, after a periodic commit
// keeps the rows of the completed batches while the file stays in intake.
// When it is imported again, stored rows with a CIN are counted as
// duplicates, but stored rows with an empty CIN are never duplicates and
// are inserted a second time.
//
// # Error Codes
//
// Row errors carry a support code from [MapError] (DB001-DB007, FILE001-FILE005,
// ERR000) that is logged alongside the row.
package core
