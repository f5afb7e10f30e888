// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package implements an MCP-compliant server that exposes the
// grading platform's tools: run_python for sandboxed execution,
// validate_python for the static stage alone, and grade_python for running a
// submission against expected-output test cases. It uses the mark3labs/mcp-go
// library to handle the protocol details.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/gradebox/gradebox/config"
	"github.com/gradebox/gradebox/grading"
	"github.com/gradebox/gradebox/sandbox"
)

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	pipeline  *sandbox.Pipeline
	checker   grading.Checker
	mcpServer *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, pipeline *sandbox.Pipeline) (*MCPServer, error) {
	s := &MCPServer{
		config:   cfg,
		logger:   logger,
		pipeline: pipeline,
		checker:  grading.DiffChecker{},
	}

	// Log configuration parameters on startup
	logger.Info("configuration loaded",
		zap.String("server.transport", cfg.Server.Transport),
		zap.Int("server.http_port", cfg.Server.HTTPPort),
		zap.String("sandbox.python_command", cfg.Sandbox.PythonCommand),
		zap.String("sandbox.helper_path", cfg.Sandbox.HelperPath),
		zap.Float64("sandbox.default_timeout_seconds", cfg.Sandbox.DefaultTimeoutSeconds),
		zap.Float64("sandbox.max_timeout_seconds", cfg.Sandbox.MaxTimeoutSeconds),
		zap.Int64("sandbox.default_memory_bytes", cfg.Sandbox.DefaultMemoryBytes),
		zap.Int64("sandbox.max_memory_bytes", cfg.Sandbox.MaxMemoryBytes),
		zap.Int64("sandbox.max_output_bytes", cfg.Sandbox.MaxOutputBytes),
	)

	// Create the MCP server
	s.mcpServer = server.NewMCPServer("gradebox", "A sandboxed Python execution and grading server")

	s.registerRunPythonTool()
	s.registerValidatePythonTool()
	s.registerGradePythonTool()

	return s, nil
}

// registerRunPythonTool registers the run_python tool
func (s *MCPServer) registerRunPythonTool() {
	tool := mcp.Tool{
		Name:        "run_python",
		Description: "Validate and execute untrusted Python code in a sandbox",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Python source code to execute",
				},
				"stdin": map[string]any{
					"type":        "string",
					"description": "Data fed to the program's standard input (optional)",
				},
				"timeout_seconds": map[string]any{
					"type":        "number",
					"description": "Wall-clock timeout hint, clamped to the platform ceiling (optional)",
				},
				"memory_limit_bytes": map[string]any{
					"type":        "integer",
					"description": "Memory limit hint, clamped to the platform ceiling (optional)",
				},
			},
			Required: []string{"code"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleRunPython)
}

// registerValidatePythonTool registers the validate_python tool
func (s *MCPServer) registerValidatePythonTool() {
	tool := mcp.Tool{
		Name:        "validate_python",
		Description: "Run only the static validation stage and report every rule violation",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Python source code to validate",
				},
			},
			Required: []string{"code"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleValidatePython)
}

// registerGradePythonTool registers the grade_python tool
func (s *MCPServer) registerGradePythonTool() {
	tool := mcp.Tool{
		Name:        "grade_python",
		Description: "Execute Python code against expected-output test cases and report pass/fail per case",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Python source code to grade",
				},
				"test_cases": map[string]any{
					"type":        "array",
					"description": "Test cases, each with name, optional stdin, and expected_stdout",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":            map[string]any{"type": "string"},
							"stdin":           map[string]any{"type": "string"},
							"expected_stdout": map[string]any{"type": "string"},
						},
						"required": []string{"name", "expected_stdout"},
					},
				},
				"timeout_seconds": map[string]any{
					"type":        "number",
					"description": "Per-case wall-clock timeout hint (optional)",
				},
				"memory_limit_bytes": map[string]any{
					"type":        "integer",
					"description": "Per-case memory limit hint (optional)",
				},
			},
			Required: []string{"code", "test_cases"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleGradePython)
}

// handleRunPython handles the run_python tool
func (s *MCPServer) handleRunPython(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}

	req := sandbox.SubmissionRequest{
		SourceCode:       code,
		Stdin:            request.GetString("stdin", ""),
		TimeoutSeconds:   request.GetFloat("timeout_seconds", 0),
		MemoryLimitBytes: int64(request.GetInt("memory_limit_bytes", 0)),
	}

	s.logger.Info("code execution requested",
		zap.Int("code_len", len(code)),
		zap.Bool("has_stdin", req.Stdin != ""))

	result := s.pipeline.Run(ctx, req)

	s.logger.Info("code execution completed",
		zap.String("status", string(result.Status)),
		zap.Int64("execution_time_ms", result.ExecutionTimeMs))

	return textResult(result)
}

// handleValidatePython handles the validate_python tool
func (s *MCPServer) handleValidatePython(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}

	verdict := s.pipeline.Validate(code)

	s.logger.Info("validation completed",
		zap.Bool("allowed", verdict.Allowed),
		zap.Int("violations", len(verdict.Violations)))

	return textResult(verdict)
}

// gradeReport is the grade_python tool's response payload.
type gradeReport struct {
	Passed  int                   `json:"passed"`
	Failed  int                   `json:"failed"`
	Results []grading.CheckResult `json:"results"`
}

// handleGradePython handles the grade_python tool
func (s *MCPServer) handleGradePython(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}

	cases, err := testCasesFromArgs(request)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("test_cases must not be empty")
	}

	s.logger.Info("grading requested", zap.Int("test_cases", len(cases)))

	report := gradeReport{Results: make([]grading.CheckResult, 0, len(cases))}
	for _, tc := range cases {
		req := sandbox.SubmissionRequest{
			SourceCode:       code,
			Stdin:            tc.Stdin,
			TimeoutSeconds:   request.GetFloat("timeout_seconds", 0),
			MemoryLimitBytes: int64(request.GetInt("memory_limit_bytes", 0)),
		}
		res := s.pipeline.Run(ctx, req)
		check := s.checker.Check(tc, res)
		if check.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, check)
	}

	s.logger.Info("grading completed",
		zap.Int("passed", report.Passed),
		zap.Int("failed", report.Failed))

	return textResult(report)
}

// testCasesFromArgs decodes the test_cases argument through JSON, the
// simplest path from protocol-level any values to typed cases.
func testCasesFromArgs(request mcp.CallToolRequest) ([]grading.TestCase, error) {
	raw, ok := request.GetArguments()["test_cases"]
	if !ok {
		return nil, fmt.Errorf("test_cases parameter is required")
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode test_cases: %w", err)
	}
	var cases []grading.TestCase
	if err := json.Unmarshal(buf, &cases); err != nil {
		return nil, fmt.Errorf("test_cases must be an array of objects: %w", err)
	}
	return cases, nil
}

// textResult marshals a payload into a single text content block.
func textResult(payload any) (*mcp.CallToolResult, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(buf),
			},
		},
	}, nil
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
