package fee

import "errors"

// Reasons an extraction produced nothing. Extract never returns them; they are
// logged and the caller sees an empty RecordSet.
var (
	ErrNoTableFound      = errors.New("no balance sheet table found")
	ErrNoDateHeaderFound = errors.New("no date header row found")
	ErrEmptyResult       = errors.New("no leaf rows survived classification")

	// ErrValueCleaning is per cell and always recovered to null.
	ErrValueCleaning = errors.New("cell value could not be cleaned")
)
