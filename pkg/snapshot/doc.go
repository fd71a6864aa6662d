// Package snapshot persists component checkpoints.
//
// A Record holds what is needed to bring a component back after a restart:
// its id and name, the data snapshot and the rendered markup. The engine
// writes records with Engine.Checkpoint and reads them back with
// Engine.Restore.
//
// Two stores are provided:
//
//   - MemoryStore: process-local, the default
//   - S3Store: objects in an S3 bucket, one per component
package snapshot
