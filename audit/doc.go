// Package audit records search attempts.
//
// Every match attempt produces one Entry, whether it succeeded, found
// nothing, or failed before searching. Logger.Record never returns an error
// and never panics: a failing Sink only increments the dropped counter and
// produces a rate-limited warning on the structured logger.
//
// Sinks: SlogSink, MemorySink and Multi here; SQLite, DynamoDB and NATS
// sinks live in sub-packages.
package audit
