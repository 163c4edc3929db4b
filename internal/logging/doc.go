// Package logging provides structured logging for ragd built on zap.
//
// Loggers are created from explicit Config values so tests and multiple
// service configurations can run side by side without process-global state.
package logging
