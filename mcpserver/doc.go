// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package implements an MCP-compliant server that exposes the
// grading platform's tools: run_python for validated, sandboxed execution of
// untrusted Python code, validate_python for the static stage alone, and
// grade_python for running a submission against expected-output test cases.
// It uses the mark3labs/mcp-go library to handle the protocol details.
//
// The server supports both stdio and HTTP transports as configured by the
// application configuration.
//
// Usage:
//
//	server, err := mcpserver.New(config, logger, pipeline)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio() // or server.ServeHTTP()
package mcpserver
