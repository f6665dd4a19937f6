package core

// error_messages.go gives every row and file failure a short support code.
//
// Codes are grouped by category:
//
//	DB001 - Duplicate key: the row collides with a stored employee or company
//	DB002 - Unique constraint: a unique value already exists
//	DB003 - Foreign key: a referenced partner or company is missing
//	DB004 - Connection refused: the database is unreachable
//	DB005 - Connection reset: the connection was interrupted
//	DB006 - Timeout: a statement or connection attempt timed out
//	DB007 - Deadlock: conflicting writes from another session
//	DB008 - Not null: a required column received no value
//	DB009 - Value too long: a text value exceeds its column size
//	DB010 - Invalid value: the database rejected a value's format
//
//	FILE001 - Unsupported format: extension is not .xlsx, .xls or .csv
//	FILE002 - Invalid CSV: the file is not parseable as CSV
//	FILE003 - Encoding error: the file contains undecodable bytes
//	FILE004 - Invalid workbook: the Excel file cannot be opened
//	FILE005 - Empty file: the file contains no header
//
//	ERR000 - Unknown error: check the log for the original message
//
// PostgreSQL errors are classified by SQLSTATE first; everything else is
// matched case-insensitively against the patterns below, first match wins.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// UserMessage provides readable error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// sqlStateMessages maps PostgreSQL SQLSTATE codes to messages.
var sqlStateMessages = map[string]UserMessage{
	"23505": {
		Message: "A record with this key already exists",
		Action:  "Check the file for repeated CIN or affiliate numbers",
		Code:    "DB001",
	},
	"23503": {
		Message: "Referenced record does not exist",
		Action:  "Check that the partner and company rows were created",
		Code:    "DB003",
	},
	"40P01": {
		Message: "Database was busy with conflicting operations",
		Action:  "Run the import again once other writers are done",
		Code:    "DB007",
	},
	"23502": {
		Message: "A required column received no value",
		Action:  "Fill in the column or relax the constraint",
		Code:    "DB008",
	},
	"22001": {
		Message: "A value is longer than its column allows",
		Action:  "Shorten the value in the source file",
		Code:    "DB009",
	},
	"22007": {
		Message: "The database rejected a value's format",
		Action:  "Check dates and numbers in the row",
		Code:    "DB010",
	},
	"22P02": {
		Message: "The database rejected a value's format",
		Action:  "Check dates and numbers in the row",
		Code:    "DB010",
	},
}

// errorPattern defines a pattern to match and its corresponding message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is checked in order, so specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg:     sqlStateMessages["23505"],
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check the file for repeated key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key",
		msg:     sqlStateMessages["23503"],
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check DATABASE_URL and that the server is running",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Run the import again; the file was left in intake",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Check database load or raise DB_CONNECT_TIMEOUT",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Check database load or raise DB_CONNECT_TIMEOUT",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg:     sqlStateMessages["40P01"],
	},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "File format is not supported",
			Action:  "Save the file as .xlsx or .csv",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma or semicolon separated",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save the file as UTF-8",
			Code:    "FILE003",
		},
	},
	{
		pattern: "open workbook",
		msg: UserMessage{
			Message: "Excel file cannot be opened",
			Action:  "Re-save the workbook as .xlsx",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Provide a file with a header row",
			Code:    "FILE005",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the log for the original error",
	Code:    "ERR000",
}

// MapError converts a technical error to a support message.
//
// Example:
//
//	msg := MapError(err)
//	// msg.Code == "DB001" for a unique violation on insert
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if msg, ok := sqlStateMessages[pgErr.Code]; ok {
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for logs.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
