// Package main is the entry point for the filehub server.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/CageChen/filehub/internal/config"
	mfs "github.com/CageChen/filehub/internal/fs"
	"github.com/CageChen/filehub/internal/git"
	"github.com/CageChen/filehub/internal/handler"
	"github.com/CageChen/filehub/internal/log"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "filehub",
		Usage:   "Serve directory listings and git status to the explorer UI",
		Version: version,
		Flags:   serveFlags(),
		Action:  runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the API server (default)",
				Flags:  serveFlags(),
				Action: runServe,
			},
			configCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Configuration file path"},
		&cli.StringFlag{Name: "host", Usage: "Listen address"},
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP server port"},
		&cli.StringFlag{Name: "git", Usage: "Git executable"},
		&cli.BoolFlag{Name: "suppress-console", Usage: "Hide console windows of git processes (Windows)"},
		&cli.BoolFlag{Name: "open", Usage: "Open browser on startup"},
		&cli.StringFlag{Name: "debug-log", Usage: "Write debug logs to this file"},
	}
}

// applyFlags lets explicitly set flags override the config file.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("host") {
		cfg.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("git") {
		cfg.Git.Binary = c.String("git")
	}
	if c.IsSet("suppress-console") {
		cfg.Git.SuppressConsole = c.Bool("suppress-console")
	}
	if c.IsSet("open") {
		cfg.Open = c.Bool("open")
	}
	if c.IsSet("debug-log") {
		cfg.DebugLog = c.String("debug-log")
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.DebugLog != "" {
		if err := log.SetFile(cfg.DebugLog); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	defer func() { _ = log.Close() }()

	log.Printf("filehub %s", version)
	log.Printf("Config file: %s", cfg.GetConfigFilePath())
	log.Printf("Git binary: %s (suppress console: %v)", cfg.Git.Binary, cfg.Git.SuppressConsole)
	if _, err := exec.LookPath(cfg.Git.Binary); err != nil {
		log.Printf("Warning: git not found, git calls will fail: %v", err)
	}
	log.Printf("Server starting at: %s", cfg.URL())

	if cfg.AllowsAllOrigins() {
		log.Printf("Warning: allow_origins contains \"*\", any website can call the API")
	}

	runner := git.NewExecRunner(cfg.Git.Binary, cfg.Git.SuppressConsole)
	runner.Env = cfg.Git.Env
	reader := git.NewReader(runner)

	gin.SetMode(gin.ReleaseMode)
	r := handler.NewRouter(cfg, mfs.NewLocalFS(), reader)

	if cfg.Open {
		go openBrowser(cfg.URL())
	}

	if err := r.Run(cfg.Addr()); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the configuration file",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a configuration file with default values",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Usage: "Where to write the file", Value: config.GetConfigPath()},
					&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
				},
				Action: func(c *cli.Context) error {
					path := c.String("path")
					if _, err := os.Stat(path); err == nil && !c.Bool("force") {
						return fmt.Errorf("%s already exists, use --force to overwrite", path)
					} else if err != nil && !errors.Is(err, os.ErrNotExist) {
						return err
					}

					cfg := config.DefaultConfig()
					cfg.SetConfigFilePath(path)
					if err := cfg.Save(); err != nil {
						return fmt.Errorf("failed to save config: %w", err)
					}
					fmt.Printf("Wrote %s\n", path)
					return nil
				},
			},
			{
				Name:  "path",
				Usage: "Print the default configuration file path",
				Action: func(_ *cli.Context) error {
					fmt.Println(config.GetConfigPath())
					return nil
				},
			},
		},
	}
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		cmd = "open"
		args = []string{url}
	default: // linux, etc.
		cmd = "xdg-open"
		args = []string{url}
	}

	_ = exec.Command(cmd, args...).Start()
}
