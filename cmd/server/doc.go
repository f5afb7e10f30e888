// Package main is the entry point for the Gradebox MCP server.
//
// Gradebox validates untrusted Python submissions against a static rule set,
// executes the ones that pass inside a resource-limited sandbox process, and
// classifies every outcome into a single terminal status suitable for
// automated grading. The server supports both stdio and HTTP transports.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main
