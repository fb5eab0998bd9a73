// Package queue provides a durable job queue with delay-until semantics,
// bounded retries with exponential backoff, and a fixed-concurrency worker
// pool with a global inter-start throttle.
//
// The package is organised around two main components:
//
//   - Queue: the enqueue-side API. Add a job under a caller-chosen id,
//     look a job up by id, remove a pending job, and read queue counts.
//   - Worker: claims jobs whose delay has elapsed and dispatches them to a
//     single ProcessFunc.
//
// Both talk to persistence only through the Storage interface. RedisStorage
// backs production deployments with a shared, crash-surviving store whose
// claim/retry transitions run as atomic Lua scripts, so multiple worker
// processes can safely lease from the same queue. MemoryStorage serves tests
// and local development.
//
// Jobs are identified by caller-supplied external ids, which makes
// "does a job for this record already exist" answerable without a secondary
// index: derive the id from the record and call Lookup.
//
// Failure semantics: when ProcessFunc returns an error the job is re-leased
// after backoff*2^(attempts-1), up to its attempt cap; after the cap the job
// is marked failed and not retried further. Completed and failed jobs are
// retained for bounded count/age windows purely for observability and then
// garbage-collected by the storage itself; callers must not rely on their
// presence after that window.
package queue
