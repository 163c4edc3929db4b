// Package repository persists document lifecycle status and chunk records in
// SQLite. It is the durable side of ingestion: a document row exists before
// background processing starts, so a crash between submission and execution
// is observable rather than silently lost.
package repository
