// Package scheduler is the domain core of the email scheduling service.
//
// It ties together the persistent email and sender stores, the durable job
// queue, the hourly rate limiter, and the mail transport:
//
//   - Scheduler accepts single and bulk scheduling requests, persists records,
//     and enqueues delayed send jobs.
//   - Processor executes a claimed job: it re-checks the record, consumes rate
//     limiter quota, and either sends the message or pushes the job into the
//     next hour window.
//   - Reconciler runs once at startup and repairs the aftermath of a crash:
//     pending records without a live job get a fresh one, and records stuck in
//     the processing state are marked failed.
//
// The package depends only on store interfaces; Postgres implementations live
// in pkg/storage.
package scheduler
