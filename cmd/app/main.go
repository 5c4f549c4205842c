package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/camroll/internal"
	"github.com/starford/camroll/internal/models"
	pkgconfig "github.com/starford/camroll/pkg/config"
)

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if lib := cmd.String("library"); lib != "" {
		cfg.Library.Path = lib
	}
	if cmd.Bool("read-only") {
		cfg.Library.ReadOnly = true
	}
	return []internal.Option{internal.WithConfig(cfg)}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func browse(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunTUI(ctx, opts...)
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func syncLibrary(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunSync(ctx, os.Stdout, opts...)
}

func captureFile(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("capture: expected exactly one file argument (use - for stdin)")
	}
	kind := models.KindImage
	if cmd.Bool("video") {
		kind = models.KindVideo
	}

	in := os.Stdin
	if name := cmd.Args().First(); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		defer f.Close()
		in = f
	}
	return internal.RunCapture(ctx, kind, in, os.Stdout, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:   "camroll",
		Usage:  "Local camera roll: media index, gallery with multi-select delete, detail viewer and capture import",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "library",
				Aliases: []string{"l"},
				Usage:   "Override library.path",
				Sources: cli.EnvVars("CAMROLL_LIBRARY"),
			},
			&cli.BoolFlag{
				Name:  "read-only",
				Usage: "Refuse deletes, captures and imports",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live events (default)",
				Action: serve,
			},
			{
				Name:   "tui",
				Usage:  "Browse the library in the terminal",
				Action: browse,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdio",
				Action: mcp,
			},
			{
				Name:   "sync",
				Usage:  "Index the library once and print counts",
				Action: syncLibrary,
			},
			{
				Name:      "capture",
				Usage:     "Store a photo (or, with --video, a recording) as a new capture",
				ArgsUsage: "<file|->",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "video", Usage: "The file is an MP4 recording"},
				},
				Action: captureFile,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
