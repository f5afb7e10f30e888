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

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/gradebox/gradebox/config"
	"github.com/gradebox/gradebox/logger"
	"github.com/gradebox/gradebox/mcpserver"
	"github.com/gradebox/gradebox/rules"
	"github.com/gradebox/gradebox/sandbox"
	"github.com/gradebox/gradebox/validator"
)

// newRules builds the rule set: the built-in defaults, optionally extended
// from a rules file and the config's extra entries.
func newRules(cfg *config.Config) (rules.Set, error) {
	set := rules.Default()
	if cfg.Rules.File != "" {
		loaded, err := rules.Load(cfg.Rules.File)
		if err != nil {
			return rules.Set{}, err
		}
		set = loaded
	}
	return set.Extend(cfg.Rules.ExtraModules, cfg.Rules.ExtraBuiltins), nil
}

func newValidator(set rules.Set) *validator.Validator {
	return validator.New(set)
}

// newSandboxConfig copies the sandbox section into the sandbox package's own
// config type, keeping the execution engine free of the configuration layer.
func newSandboxConfig(cfg *config.Config) *sandbox.Config {
	return &sandbox.Config{
		PythonCommand:         cfg.Sandbox.PythonCommand,
		HelperPath:            cfg.Sandbox.HelperPath,
		ScratchDir:            cfg.Sandbox.ScratchDir,
		DefaultTimeoutSeconds: cfg.Sandbox.DefaultTimeoutSeconds,
		MaxTimeoutSeconds:     cfg.Sandbox.MaxTimeoutSeconds,
		DefaultMemoryBytes:    cfg.Sandbox.DefaultMemoryBytes,
		MaxMemoryBytes:        cfg.Sandbox.MaxMemoryBytes,
		MaxOutputBytes:        cfg.Sandbox.MaxOutputBytes,
		MaxStdinBytes:         cfg.Sandbox.MaxStdinBytes,
		MaxProcs:              cfg.Sandbox.MaxProcs,
	}
}

func newExecutor(log *zap.Logger, cfg *sandbox.Config) (sandbox.Executor, error) {
	return sandbox.NewProcessExecutor(log, cfg)
}

func main() {
	app := fx.New(
		// Provide dependencies
		fx.Provide(
			// Config
			config.New,

			// Logger with configuration
			logger.NewFromConfig,

			// Static validation rules and validator
			newRules,
			newValidator,

			// Sandboxed execution pipeline
			newSandboxConfig,
			newExecutor,
			sandbox.NewPipeline,

			// MCP Server
			mcpserver.New,
		),

		// Start the appropriate transport based on config
		fx.Invoke(
			func(cfg *config.Config, server *mcpserver.MCPServer) {
				switch cfg.Server.Transport {
				case "stdio":
					// Use fx to run this as a background task
					go func() {
						if err := server.ServeStdio(); err != nil {
							panic(err)
						}
					}()
				case "http":
					go func() {
						if err := server.ServeHTTP(); err != nil {
							panic(err)
						}
					}()
				default:
					panic("unsupported transport: " + cfg.Server.Transport)
				}
			},
		),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	// Start the application
	app.Run()
}
