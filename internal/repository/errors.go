package repository

import "errors"

var (
	// ErrAnalysisNotFound indicates no stored result matches the ID.
	ErrAnalysisNotFound = errors.New("analysis result not found")
)
