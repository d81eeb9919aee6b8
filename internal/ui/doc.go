// Package ui renders the terminal output of the apswitch CLI: the startup
// banner and the result boxes printed by one-shot commands.
//
// Components render once and return a string. Nothing here reads input.
//
//   - Header: banner showing the operation and its parameters
//   - Result: success or failure box with details or troubleshooting tips
//
// Structured logs go through the logging package. The banner is printed
// before logging starts, so it is never interleaved with log lines.
package ui
