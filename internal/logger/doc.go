// Package logger wraps logrus with a context-carried logger, standard
// pipeline fields and optional rotated file output.
package logger
