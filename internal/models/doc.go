// Package models lists the models available to the configured translation
// engine, grouped into text generation models and everything else.
package models
