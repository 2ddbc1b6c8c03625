package errors

import "errors"

var (
	ErrNotFound = errors.New("event not found")

	ErrInvalidID = errors.New("invalid event ID format")

	// ErrSlotRaceLost is returned when the reservation insert hits the unique
	// slot index: another booking won the race between conflict check and insert.
	ErrSlotRaceLost = errors.New("slot reservation lost to a concurrent booking")
)
