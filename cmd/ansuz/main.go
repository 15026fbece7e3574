package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/parser"
	pkgconfig "github.com/starford/ansuz/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func compile(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var data []byte
	switch src := cmd.Args().First(); src {
	case "", "-":
		data, err = io.ReadAll(os.Stdin)
	default:
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return fmt.Errorf("read criteria: %w", err)
	}

	out, err := internal.CompileDocuments(ctx, data, parser.Context{
		User:      cmd.String("user"),
		Folder:    cmd.String("folder"),
		Reference: cmd.String("reference"),
	}, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}

	failed := 0
	for i, o := range out {
		if o.Err != nil {
			failed++
			fmt.Fprintln(os.Stdout)
			fmt.Fprintf(os.Stderr, "document %d: %v\n", i, o.Err)
			continue
		}
		fmt.Fprintln(os.Stdout, o.Query)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(out))
	}
	return nil
}

func resolve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	expr := cmd.Args().First()
	if expr == "" {
		return errors.New("expression argument is required")
	}
	res, err := internal.ResolveDate(ctx, expr, cmd.String("until"), cmd.String("reference"), internal.WithConfig(cfg))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintln(os.Stdout, res.Value)
	return nil
}

func referenceFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "reference",
		Aliases: []string{"r"},
		Usage:   "Reference instant for relative dates (RFC 3339, default now)",
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "ansuz",
		Usage:  "Compile structured search criteria into backend query strings",
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
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the inbox watcher",
				Action: serve,
			},
			{
				Name:      "compile",
				Usage:     "Compile criteria documents read from a file or stdin",
				ArgsUsage: "[file|-]",
				Action:    compile,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Current user"},
					&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Current folder"},
					referenceFlag(),
				},
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a natural-language date expression",
				ArgsUsage: "<expression>",
				Action:    resolve,
				Flags: []cli.Flag{
					referenceFlag(),
					&cli.StringFlag{Name: "until", Usage: "Resolve an explicit range ending at this expression"},
					&cli.BoolFlag{Name: "json", Usage: "Print the full resolution as JSON"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
