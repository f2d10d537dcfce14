// Package logger provides structured logging for the scheduling services.
//
// Loggers are log/slog JSON loggers. Request- and operation-scoped loggers
// travel through context.Context so that every layer logs with the same
// correlation fields.
package logger
