// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"errors"
	"fmt"
)

// Sentinel errors for parse failure categories, checked with errors.Is().
var (
	// ErrUnsupportedLanguage indicates no parser is registered for the
	// requested language or file extension.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrFileTooLarge is returned when content exceeds the parser's size
	// limit. The scanner treats this as a non-fatal skip.
	ErrFileTooLarge = errors.New("file exceeds maximum size limit")

	// ErrInvalidContent indicates the content cannot be processed at all:
	// nil slice, non-UTF-8 encoding, binary data.
	ErrInvalidContent = errors.New("invalid content")

	// ErrParseFailed indicates parsing failed completely and no imports
	// could be extracted. Syntax errors with partial results do NOT return
	// this; they set ParseResult.HasSyntaxErrors instead.
	ErrParseFailed = errors.New("parse failed")
)

// ParseError carries file location context for a parse failure. It is the
// unit the scanner collects as a non-fatal diagnostic.
type ParseError struct {
	// FilePath is the file where the failure occurred.
	FilePath string

	// Line is the 1-indexed line number, 0 if unknown.
	Line int

	// Message describes the failure.
	Message string

	// Cause is the underlying error, possibly nil.
	Cause error
}

// Error formats as "file.py:10: message" or "file.py: message" when no
// line is known.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// Unwrap returns the underlying cause for errors.Is / errors.As.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// WrapParseError attaches file context to err. A nil err returns nil and
// an existing ParseError is returned unchanged.
func WrapParseError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return err
	}

	return &ParseError{
		FilePath: filePath,
		Message:  err.Error(),
		Cause:    err,
	}
}
