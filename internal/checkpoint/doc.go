// Package checkpoint stores the per-batch output files of a translation run.
//
// A checkpoint is named after the inclusive index range it covers
// (batch_0-99.jsonl). Its existence marks the batch as complete, so stores
// only ever expose fully written files: the local store writes to a
// temporary file and renames it, the S3 store uploads in a single PUT.
package checkpoint
