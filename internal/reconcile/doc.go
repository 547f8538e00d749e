// Package reconcile is the contract-payment reconciliation engine.
//
// Every function here is pure: the reference date is passed in explicitly and
// inputs are never mutated. Statuses of payments, contracts and projects are
// always derived from dates and amounts, never trusted from stored records.
//
// Callers are expected to validate amounts and required dates before invoking
// the engine; nothing in this package rejects malformed input except the
// sequential completion guard in ApplyMilestoneEdit.
package reconcile
