// Package tasks implements the stateful sync engine and the playlist
// materializer.
//
// # Sync Engine
//
// [SyncEngine] owns the [models.SyncJob] lifecycle: it freezes the source
// snapshot, fans pending entries out to a bounded worker pool, aggregates
// results on a single goroutine, and checkpoints the job durably through a
// [CheckpointStore] so an interrupted run can resume without repeating
// resolved entries.
//
// Item failures are isolated: one entry exhausting its retries records a
// failed result and the job keeps going. Only checkpoint-store failures are
// fatal to the whole job.
//
// # Item Processor
//
// [ItemProcessor] resolves one entry: search the destination catalog, rank
// candidates, retry transient provider failures with exponential backoff and
// jitter. It always produces a result; the only exception is cancellation,
// which leaves the entry unresolved for a later resume.
//
// # Materializer
//
// [Materializer] converges the destination playlist onto a job's matched
// tracks. Additions preserve source order and the operation is idempotent;
// mirror mode additionally removes tracks absent from the match set.
//
// Operations emit progress updates via channels for non-blocking status
// reporting to CLI/UI layers.
package tasks
