// Package dataset provides index-range access to the records of a source
// dataset. Providers read a Hugging Face dataset through the datasets-server
// API, a local JSON Lines file or a SQLite table.
package dataset
