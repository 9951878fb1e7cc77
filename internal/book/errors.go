package book

import "errors"

var (
	ErrNotXlsx          = errors.New("not an xlsx file")
	ErrSheetNotFound    = errors.New("sheet not found")
	ErrDuplicateSheet   = errors.New("duplicate sheet name")
	ErrInvalidSheetName = errors.New("invalid sheet name")
	ErrLastSheet        = errors.New("cannot remove the last sheet")
	ErrLastVisible      = errors.New("cannot hide the last visible sheet")
	ErrHiddenActive     = errors.New("cannot activate a hidden sheet")
	ErrMergeOverlap     = errors.New("merge overlaps an existing merged range")
	ErrStyleUnknown     = errors.New("unknown style id")
	ErrBadPosition      = errors.New("position out of bounds")
	ErrNameNotFound     = errors.New("defined name not found")
	ErrDuplicateName    = errors.New("duplicate defined name")
	ErrInvalidName      = errors.New("invalid defined name")
	ErrNoPath           = errors.New("workbook has no backing path")
)

// Warning is a non-fatal condition collected while opening or
// mutating a workbook.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
