package iris

import "errors"

var (
	ErrAlreadyBuilt  = errors.New("Already built the index")
	ErrIDNotFound    = errors.New("ID not found")
	ErrDuplicateID   = errors.New("ID already inserted")
	ErrSearchingMode = errors.New("Index is in searching mode")
	ErrEmptyIndex    = errors.New("Index is empty")
	ErrEmptyResult   = errors.New("Search returned no results")
	ErrNoOverlap     = errors.New("Templates share no valid mask bits")
	ErrVectorLength  = errors.New("Flat vector has the wrong length")
	ErrInvalidConfig = errors.New("Invalid benchmark configuration")
	ErrInvalidState  = errors.New("Benchmark step called out of order")
	ErrUnknownIndex  = errors.New("Unknown index kind")
)
