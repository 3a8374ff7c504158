package web

// messages.go defines user-friendly error messages with codes for support
// reference. When users encounter errors, they can quote the error code to
// support staff for faster diagnosis.
//
// Error codes are grouped by category:
//
//	FMT001 - Unknown format        VAL001 - Invalid date
//	FMT002 - Detection failed      VAL002 - Required field empty
//	MAP001 - Column mapping        VAL003 - Invalid status/priority
//	DOC001 - Structural error      FILE001 - File too large
//	ROW001 - Import aborted        FILE002 - No file provided
//	JOB001 - Job not found         FILE003 - Empty file
//	JOB002 - System busy           RATE001 - Rate limited
//	CTX001 - Request cancelled     CTX002 - Request timeout
//	ERR000 - Unknown error (fallback)
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns come before
// general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. Order matters: specific patterns before general ones.
var errorPatterns = []errorPattern{
	// Format selection and detection
	{
		pattern: "unknown or unsupported format",
		msg: UserMessage{
			Message: "The requested format is not supported for this operation",
			Action:  "Check GET /api/formats for the supported formats and directions",
			Code:    "FMT001",
		},
	},
	{
		pattern: "could not detect format",
		msg: UserMessage{
			Message: "The file format could not be detected",
			Action:  "Specify the format explicitly in the request",
			Code:    "FMT002",
		},
	},

	// Column mapping
	{
		pattern: "column mapping required",
		msg: UserMessage{
			Message: "No title column was found in the file header",
			Action:  "Provide a column mapping that names the title column",
			Code:    "MAP001",
		},
	},

	// Structural failures
	{
		pattern: "structural error",
		msg: UserMessage{
			Message: "The file could not be parsed",
			Action:  "Check that the file is intact and in the format you selected",
			Code:    "DOC001",
		},
	},
	{
		pattern: "import aborted on first error",
		msg: UserMessage{
			Message: "Import stopped at the first invalid record",
			Action:  "Fix the reported record, or enable skipErrors to import the rest",
			Code:    "ROW001",
		},
	},

	// Field validation
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid date format detected",
			Action:  "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024",
			Code:    "VAL001",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "A required field is empty",
			Action:  "Ensure every task has a title",
			Code:    "VAL002",
		},
	},
	{
		pattern: "invalid status",
		msg: UserMessage{
			Message: "A task has an unrecognized status",
			Action:  "Use inbox, next-action, waiting, someday, or completed",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid priority",
		msg: UserMessage{
			Message: "A task has an unrecognized priority",
			Action:  "Use low, medium, or high",
			Code:    "VAL003",
		},
	},
	{
		pattern: "not valid for property",
		msg: UserMessage{
			Message: "An export filter rule uses an operator its property does not support",
			Action:  "Check the operator list for the property and adjust the rule",
			Code:    "VAL004",
		},
	},

	// File handling
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller parts",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Attach a file to the request",
			Code:    "FILE002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with task data",
			Code:    "FILE003",
		},
	},

	// Conversion jobs
	{
		pattern: "job not found",
		msg: UserMessage{
			Message: "Conversion job not found",
			Action:  "The job may have expired. Start a new conversion",
			Code:    "JOB001",
		},
	},
	{
		pattern: "too many concurrent conversions",
		msg: UserMessage{
			Message: "System is busy processing other conversions",
			Action:  "Please wait a moment and try again",
			Code:    "JOB002",
		},
	},

	// Request lifecycle
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "CTX001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "CTX002",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000). Support
// staff should check application logs for the original technical error
// when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
