// Package chain orchestrates the full retrieval-augmented answer flow:
// normalize the query, retrieve passages, build a grounded or fallback
// prompt, generate, and format for the delivery channel.
//
// Answer never returns an error. It sits directly on a user-facing reply
// path, so every failure mode collapses into a well-formed result whose
// Status and Err fields describe what happened.
package chain
