// Package core provides the domain model shared by every part of the build
// engine.
//
// # Core Types
//
// Item and Layout: documents with an identifier, content and attributes.
// ItemRep: one named processing pipeline instance of an item.
// Reference: the stable, type-tagged key under which objects are recorded in
// the dependency graph and in every persisted store.
// Content: textual or binary content of a document or of a snapshot.
//
// Documents and reps are constructed fresh every run from a data source;
// only references survive across runs.
package core
