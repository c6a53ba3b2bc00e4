// Package logger provides structured logging for replharvest.
//
// It wraps zerolog behind a small Logger interface so components can carry
// contextual fields (item key, attempt, state) without depending on zerolog
// directly. Console output is coloured only when stderr is a terminal.
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "lister")
//	log.WithError(err).Warn("listing pass failed")
//
// Tests use NewTestLogger to capture messages or NewNopLogger to discard them.
package logger
