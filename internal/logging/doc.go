// Package logging builds the slog loggers used across tunesmith and
// standardizes the attribute keys emitted by every component.
package logging
