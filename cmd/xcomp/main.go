package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/xcomp/internal/compositor"
	"github.com/1broseidon/xcomp/internal/config"
	"github.com/1broseidon/xcomp/internal/platform"
	"github.com/1broseidon/xcomp/internal/scene"
)

const managerName = "xcomp"

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runCompositor(os.Args[2:]))
	case "check":
		os.Exit(runCheck(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:], os.Stdout, os.Stderr))
	case "scene":
		os.Exit(runScene(os.Args[2:], os.Stdout, os.Stderr))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: xcomp <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run                 Start the compositor (foreground)")
	fmt.Fprintln(w, "  check               Report extensions, monitors and the running compositor")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  scene render        Render a scene file to PNG without a display")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'xcomp <command> --help' for command-specific options.")
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

// newLogger builds the process logger: text on a terminal, JSON otherwise,
// unless log_format forces one.
func newLogger(cfg *config.Config, w *os.File) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	useText := term.IsTerminal(int(w.Fd()))
	switch cfg.LogFormat {
	case "text":
		useText = true
	case "json":
		useText = false
	}
	if useText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func runCompositor(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/xcomp/config.yaml)")
	display := fs.String("display", "", "X display (overrides config and $DISPLAY)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: xcomp run [--path PATH] [--display DISPLAY]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Redirect every top-level window and composite the screen until interrupted.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "run takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := res.Config
	if *display != "" {
		cfg.Display = *display
	}

	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	backend, err := platform.NewLinuxBackendFromDisplay(cfg.ResolveDisplay(), cfg.OpacityProperty(), logger)
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer backend.Disconnect()

	if err := backend.Register(managerName); err != nil {
		var running *platform.AlreadyRunningError
		if errors.As(err, &running) {
			log.Fatalf("%v", running)
		}
		log.Fatalf("Failed to register as compositing manager: %v", err)
	}
	logger.Info("registered as compositing manager", "display", cfg.ResolveDisplay())

	opts, err := cfg.ToOptions(logger)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	comp := compositor.New(backend, opts)
	if err := comp.Start(); err != nil {
		log.Fatalf("Failed to start compositor: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// Closing the connection wakes the blocked event read.
	go func() {
		<-ctx.Done()
		backend.Disconnect()
	}()

	err = comp.Run(ctx, backend)
	if ctx.Err() != nil {
		logger.Info("compositor stopped", "frames", comp.Frames())
		return 0
	}
	if errors.Is(err, platform.ErrClosed) {
		logger.Error("display connection lost", "frames", comp.Frames())
		return 1
	}
	logger.Error("compositor failed", "error", err)
	return 1
}

func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/xcomp/config.yaml)")
	display := fs.String("display", "", "X display (overrides config and $DISPLAY)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: xcomp check [--path PATH] [--display DISPLAY]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Connect to the display and report what the compositor would use.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg := res.Config
	if *display != "" {
		cfg.Display = *display
	}

	backend, err := platform.NewLinuxBackendFromDisplay(cfg.ResolveDisplay(), cfg.OpacityProperty(), newLogger(cfg, os.Stderr))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer backend.Disconnect()
	conn := backend.Connection()

	width, height := backend.ScreenSize()
	fmt.Printf("display:    %s\n", cfg.ResolveDisplay())
	fmt.Printf("screen:     %dx%d depth %d\n", width, height, conn.Depth)
	fmt.Println("extensions:")
	for _, ext := range conn.Extensions {
		kind := "required"
		if !ext.Required {
			kind = "optional"
		}
		fmt.Printf("  %-10s %d.%d (%s)\n", ext.Name, ext.Major, ext.Minor, kind)
	}

	monitors, err := conn.Monitors()
	if err != nil {
		fmt.Printf("monitors:   unavailable (%v)\n", err)
	} else {
		fmt.Println("monitors:")
		for _, m := range monitors {
			fmt.Printf("  %-10s %dx%d+%d+%d\n", m.Name, m.Width, m.Height, m.X, m.Y)
		}
	}

	if owner, name, ok := backend.CurrentOwner(); ok {
		if name == "" {
			name = "unnamed"
		}
		fmt.Printf("compositor: running (0x%x, %s)\n", uint32(owner), name)
	} else {
		fmt.Println("compositor: none")
	}
	return 0
}

func runConfig(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  xcomp config validate [--path PATH]")
		fmt.Fprintln(stderr, "  xcomp config print [--path PATH] [--effective|--defaults]")
		fmt.Fprintln(stderr, "  xcomp config explain [--path PATH] <yaml.path>")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/xcomp/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		if _, err := loadConfig(*path); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintln(stdout, "config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/xcomp/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		_ = fs.Bool("effective", false, "Print effective config (default)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfig(*path)
			if err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprint(stdout, string(data))
		return 0

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/xcomp/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}

		fmt.Fprintf(stdout, "path: %s\n", queryPath)
		fmt.Fprintf(stdout, "source: %s\n", formatSource(src))
		fmt.Fprintf(stdout, "value:\n%s", string(out))
		return 0

	default:
		fmt.Fprintf(stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func runScene(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  xcomp scene render [--path PATH] [-o OUT.png] <scene.yaml>")
		return 2
	}
	if args[0] != "render" {
		fmt.Fprintf(stderr, "Unknown scene subcommand: %s\n", args[0])
		return 2
	}

	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/xcomp/config.yaml)")
	out := fs.String("o", "scene.png", "Output PNG file")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "render requires exactly one <scene.yaml>")
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: res.Config.SlogLevel()}))
	opts, err := res.Config.ToOptions(logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	s, err := scene.Load(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	result, err := scene.Render(s, opts)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := scene.WritePNG(result.Image, *out); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %s (%dx%d, %d frames, %d composites)\n",
		*out, result.Image.Bounds().Dx(), result.Image.Bounds().Dy(), result.Frames, result.Composites)
	return 0
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}
