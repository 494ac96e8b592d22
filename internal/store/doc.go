// Package store provides the document store used by the notification
// handlers and the reminder scan job.
//
// It exposes a small document-database contract: keyed documents grouped in
// collections (with nested subcollections), merge updates, conditional
// updates and atomic multi-document batches. Every committed write is
// reported through a change callback so triggers can react to it.
package store
