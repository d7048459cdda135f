package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"time"

	"github.com/brandquad/odloader-go"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/peterbourgon/ff/v3/ffyaml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Build flags
var version = ""
var commit = ""
var date = ""

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := newCommand()
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *ffcli.Command {
	fs := flag.NewFlagSet("odloader", flag.ExitOnError)
	return &ffcli.Command{
		ShortUsage: "odloader [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(),
			newEndpointCommand(),
			newListCommand(),
			newDownloadCommand(),
		},
	}
}

func options() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix("ODLOADER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
	}
}

// clientFlags are shared by every command that talks to the API.
type clientFlags struct {
	link      *string
	apiBase   *string
	verbose   *bool
	quiet     *bool
	logFormat *string
	timeout   *time.Duration
	maxTries  *int
	wait      *time.Duration
	maxDepth  *int
}

func addClientFlags(fs *flag.FlagSet) *clientFlags {
	defaults := odloader.NewDefaultConfig()
	fs.String("config", "", "YAML config file (optional)")
	return &clientFlags{
		link:      fs.String("link", "", "OneDrive public share link (required)"),
		apiBase:   fs.String("api-base", defaults.APIBase, "Base URL of the OneDrive API"),
		verbose:   fs.Bool("verbose", false, "Print diagnostics for every request"),
		quiet:     fs.Bool("quiet", false, "Only print warnings and errors"),
		logFormat: fs.String("log-format", "console", "Log format (console, json)"),
		timeout:   fs.Duration("timeout", defaults.Timeout, "HTTP request timeout (0 means none)"),
		maxTries:  fs.Int("max-tries", defaults.MaxTries, "Retries per request (0 means none)"),
		wait:      fs.Duration("wait", defaults.Wait, "Minimum wait between retries"),
		maxDepth:  fs.Int("max-depth", defaults.MaxDepth, "Maximum folder depth (0 means unlimited)"),
	}
}

func (f *clientFlags) config() (*odloader.Config, *zap.Logger, error) {
	if *f.link == "" {
		return nil, nil, fmt.Errorf("flag -link is required")
	}
	logger, err := newLogger(*f.verbose, *f.quiet, *f.logFormat)
	if err != nil {
		return nil, nil, err
	}

	config := odloader.NewDefaultConfig()
	config.APIBase = *f.apiBase
	config.Timeout = *f.timeout
	config.MaxTries = *f.maxTries
	config.Wait = *f.wait
	config.MaxDepth = *f.maxDepth
	config.Logger = logger
	return config, logger, nil
}

func newLogger(verbose, quiet bool, format string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	switch {
	case verbose:
		level = zapcore.DebugLevel
	case quiet:
		level = zapcore.WarnLevel
	}

	var config zap.Config
	if format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)

	return config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

func newVersionCommand() *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "odloader version",
		ShortHelp:  "Print version information",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			fields := []string{v}
			if commit != "" {
				fields = append(fields, commit)
			}
			if date != "" {
				fields = append(fields, date)
			}
			fmt.Println(strings.Join(fields, " "))
			return nil
		},
	}
}

func newEndpointCommand() *ffcli.Command {
	cmd := "endpoint"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	link := fs.String("link", "", "OneDrive public share link (required)")
	fs.String("config", "", "YAML config file (optional)")
	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("odloader %s [flags]", cmd),
		ShortHelp:  "Print the API endpoints derived from a share link",
		FlagSet:    fs,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			if *link == "" {
				return fmt.Errorf("flag -link is required")
			}
			return printEndpoints(os.Stdout, *link)
		},
	}
}

func printEndpoints(w io.Writer, link string) error {
	endpoint, err := odloader.ShareEndpoint(link)
	if err != nil {
		return err
	}
	token, err := odloader.EncodeShareLink(link)
	if err != nil {
		return err
	}
	decoded, err := odloader.DecodeShareToken(token)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Token: %s\nDecoded: %s\n", token, decoded)
	fmt.Fprintf(w, "Metadata: %s\nChildren: %s/children\nContent: %s/content\n", endpoint, endpoint, endpoint)
	return nil
}

func newListCommand() *ffcli.Command {
	cmd := "list"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cf := addClientFlags(fs)
	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("odloader %s [flags]", cmd),
		ShortHelp:  "List the contents of a shared folder",
		FlagSet:    fs,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			config, logger, err := cf.config()
			if err != nil {
				return err
			}
			defer logger.Sync()

			client := odloader.NewOneDriveClient(config)
			nodes, err := client.Scan(ctx, *cf.link, func(count, totalSize int64) {
				logger.Debug("found", zap.Int64("files", count), zap.Int64("size", totalSize))
			})
			if err != nil {
				return err
			}
			printTree(os.Stdout, nodes)
			return nil
		},
	}
}

func newDownloadCommand() *ffcli.Command {
	cmd := "download"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cf := addClientFlags(fs)
	defaults := odloader.NewDefaultConfig()
	output := fs.String("output", defaults.DownloadDir, "Download directory")
	flatten := fs.Bool("flatten", defaults.Flatten, "Put files of every sub-folder into one directory")
	flattenDir := fs.String("flatten-dir", defaults.FlattenDir, "Name of the directory used with -flatten")
	strict := fs.Bool("strict", false, "Do not save the body of failed content requests")
	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("odloader %s [flags]", cmd),
		ShortHelp:  "Download an entire shared folder",
		FlagSet:    fs,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			config, logger, err := cf.config()
			if err != nil {
				return err
			}
			defer logger.Sync()

			config.DownloadDir = *output
			config.Flatten = *flatten
			config.FlattenDir = *flattenDir
			config.StrictContent = *strict

			client := odloader.NewOneDriveClient(config)
			nodes, saved, err := client.Run(ctx, *cf.link)
			if err != nil {
				return err
			}

			files, size := odloader.Stats(nodes)
			fmt.Println("Downloaded files:")
			for _, path := range saved {
				fmt.Println("  -", path)
			}
			fmt.Printf("total files: %d, total size: %d\n", files, size)
			return nil
		},
	}
}

func printTree(w io.Writer, nodes []odloader.TreeNode) {
	odloader.Walk(nodes, func(parents []string, n odloader.TreeNode) {
		indent := strings.Repeat("  ", len(parents))
		if n.IsFolder() {
			fmt.Fprintf(w, "%s%s/ (%d items)\n", indent, n.Name, len(n.Children))
			return
		}
		fmt.Fprintf(w, "%s%s (%d bytes)\n", indent, n.Name, n.Size)
	})
	files, size := odloader.Stats(nodes)
	fmt.Fprintf(w, "total files: %d, total size: %d\n", files, size)
}
