// Package record provides the ordered JSON record type that flows through
// the translation pipeline. Key order and untouched values are preserved
// byte for byte so checkpoints mirror the source dataset.
package record
