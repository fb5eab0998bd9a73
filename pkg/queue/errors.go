package queue

import "errors"

var (
	// ErrStorageNil is returned when a nil storage is provided.
	ErrStorageNil = errors.New("queue: storage cannot be nil")

	// ErrProcessorNil is returned when a worker is created without a process function.
	ErrProcessorNil = errors.New("queue: process function cannot be nil")

	// ErrEmptyJobID is returned when a job id is empty.
	ErrEmptyJobID = errors.New("queue: job id cannot be empty")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload.
	ErrPayloadNil = errors.New("queue: payload cannot be nil")

	// ErrJobExists is returned when enqueueing under an id that is already present.
	ErrJobExists = errors.New("queue: job already exists")

	// ErrJobNotFound is returned when no job exists under the given id.
	ErrJobNotFound = errors.New("queue: job not found")

	// ErrJobActive is returned when removing a job that is currently leased.
	ErrJobActive = errors.New("queue: job is being processed and cannot be removed")

	// ErrNoJobToClaim is returned by storages when no job is runnable; the
	// worker treats it as a normal empty poll, not a failure.
	ErrNoJobToClaim = errors.New("queue: no job to claim")

	// ErrStorageUnavailable wraps storage connectivity failures so the worker
	// can stall instead of crashing while the shared store is unreachable.
	ErrStorageUnavailable = errors.New("queue: storage unavailable")
)
