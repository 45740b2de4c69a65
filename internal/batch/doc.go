// Package batch runs a translation over an index range of a dataset in
// fixed-size batches. Every finished batch is written as one checkpoint and
// batches with an existing checkpoint are skipped, so an interrupted run
// resumes where it stopped.
package batch
