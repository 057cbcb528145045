// cmd/chronos/main.go
//
// This is the entry point for the Chronos CLI.
//
// Chronos drives a long-running coding-agent task to completion without
// manual supervision: it invokes the agent in a loop, throttles
// invocations under the agent's rate limit, watches the output stream
// for the completion marker, and checkpoints progress so a crash or
// Ctrl+C can be resumed with `chronos resume`.

package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/farhanmir/Chronos/internal/config"
	"github.com/farhanmir/Chronos/internal/logging"
	"github.com/farhanmir/Chronos/internal/runner"
	"github.com/farhanmir/Chronos/internal/sequence"
	"github.com/farhanmir/Chronos/internal/session"
	"github.com/farhanmir/Chronos/internal/tui"
)

const version = "0.1.0"

const usageText = `chronos - autonomous coding-agent runner

Usage:
  chronos run [flags] [prompt]   Run a task (prompt, -file, or -sequence)
  chronos resume [flags]         Resume an interrupted or uncertain session
  chronos status [flags]         Show the current session
  chronos clear [flags]          Delete the current session
  chronos version                Print the version

Run 'chronos <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(1)
	}
	var code int
	switch os.Args[1] {
	case "run":
		code = cmdRun(os.Args[2:])
	case "resume":
		code = cmdResume(os.Args[2:])
	case "status":
		code = cmdStatus(os.Args[2:])
	case "clear":
		code = cmdClear(os.Args[2:])
	case "version", "-version", "--version":
		fmt.Printf("chronos %s\n", version)
	case "help", "-h", "--help":
		fmt.Print(usageText)
	default:
		fmt.Fprintf(os.Stderr, "chronos: unknown command %q\n\n%s", os.Args[1], usageText)
		code = 1
	}
	os.Exit(code)
}

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var (
		file    = fs.String("file", "", "read the prompt from a file")
		seqFile = fs.String("sequence", "", "run a sequence of prompts from a YAML file")
		dir     = fs.String("dir", ".", "project directory to run the agent in")
		yolo    = fs.Bool("yolo", false, "unattended mode (skip interactive confirmations)")
		force   = fs.Bool("force", false, "discard any existing session and start fresh")
		verbose = fs.Bool("verbose", false, "verbose output")
	)
	fs.StringVar(file, "f", "", "read the prompt from a file (shorthand)")
	fs.StringVar(seqFile, "s", "", "run a sequence of prompts from a YAML file (shorthand)")
	fs.StringVar(dir, "d", ".", "project directory (shorthand)")
	fs.BoolVar(verbose, "v", false, "verbose output (shorthand)")
	fs.Parse(args)

	prompt := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "chronos: read prompt file: %v\n", err)
			return 1
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" && *seqFile == "" {
		fmt.Fprintln(os.Stderr, "chronos: provide a prompt, -file, or -sequence")
		return 1
	}

	r, logger, code := buildRunner(*dir, *verbose)
	if code != 0 {
		return code
	}
	defer logger.Close()

	opts := runner.Options{Force: *force, Yolo: *yolo}
	var err error
	if *seqFile != "" {
		var items []session.PromptItem
		items, err = sequence.LoadFile(*seqFile)
		if err == nil {
			err = r.RunSequence(items, opts)
		}
	} else {
		err = r.Run(prompt, opts)
	}
	return reportRunError(err)
}

func cmdResume(args []string) int {
	fs := flag.NewFlagSet("resume", flag.ExitOnError)
	var (
		dir     = fs.String("dir", ".", "project directory")
		yolo    = fs.Bool("yolo", false, "unattended mode (skip interactive confirmations)")
		verbose = fs.Bool("verbose", false, "verbose output")
	)
	fs.StringVar(dir, "d", ".", "project directory (shorthand)")
	fs.BoolVar(verbose, "v", false, "verbose output (shorthand)")
	fs.Parse(args)

	r, logger, code := buildRunner(*dir, *verbose)
	if code != 0 {
		return code
	}
	defer logger.Close()

	return reportRunError(r.Resume(runner.Options{Yolo: *yolo}))
}

func cmdStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	var (
		dir   = fs.String("dir", ".", "project directory")
		watch = fs.Bool("watch", false, "keep the view open and refresh as the session changes")
	)
	fs.StringVar(dir, "d", ".", "project directory (shorthand)")
	fs.Parse(args)

	cfg, err := config.New(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: %v\n", err)
		return 1
	}
	manager := session.NewManager(cfg.ProjectDir)

	if *watch {
		p := tea.NewProgram(tui.NewWatchModel(manager))
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "chronos: watch view: %v\n", err)
			return 1
		}
		return 0
	}

	s, err := manager.Load()
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			fmt.Println("No active session in this directory.")
			return 0
		}
		fmt.Fprintf(os.Stderr, "chronos: %v\n", err)
		return 1
	}
	fmt.Print(tui.RenderStatus(s))
	return 0
}

func cmdClear(args []string) int {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	var (
		dir = fs.String("dir", ".", "project directory")
		yes = fs.Bool("yes", false, "skip the confirmation prompt")
	)
	fs.StringVar(dir, "d", ".", "project directory (shorthand)")
	fs.Parse(args)

	cfg, err := config.New(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: %v\n", err)
		return 1
	}
	manager := session.NewManager(cfg.ProjectDir)
	if !manager.Exists() {
		fmt.Println("No session to clear.")
		return 0
	}
	if !*yes && !confirm("Are you sure you want to clear the session? [y/N] ") {
		fmt.Println("Aborted.")
		return 0
	}
	if err := manager.Delete(); err != nil {
		fmt.Fprintf(os.Stderr, "chronos: %v\n", err)
		return 1
	}
	fmt.Println("Session cleared.")
	return 0
}

// buildRunner assembles a production runner for the project directory.
func buildRunner(dir string, verbose bool) (*runner.Runner, *logging.Logger, int) {
	cfg, err := config.New(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: %v\n", err)
		return nil, nil, 1
	}
	if err := config.InitChronosDir(cfg.ProjectDir); err != nil {
		fmt.Fprintf(os.Stderr, "chronos: init project dir: %v\n", err)
		return nil, nil, 1
	}
	logger, err := logging.New(cfg.LogsDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: %v\n", err)
		return nil, nil, 1
	}
	presenter := tui.NewConsolePresenter(os.Stdout, verbose)
	r, err := runner.New(cfg,
		runner.WithPresenter(presenter),
		runner.WithLogger(logger),
	)
	if err != nil {
		logger.Close()
		fmt.Fprintf(os.Stderr, "chronos: %v\n", err)
		return nil, nil, 1
	}
	return r, logger, 0
}

// reportRunError maps run outcomes to exit codes with user guidance for
// the expected failure shapes.
func reportRunError(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, runner.ErrSessionExists):
		fmt.Fprintln(os.Stderr, "chronos: an unfinished session exists for this directory.")
		fmt.Fprintln(os.Stderr, "Use 'chronos resume' to continue it, or 'chronos run -force' to start fresh.")
		return 1
	case errors.Is(err, session.ErrNoSession):
		fmt.Fprintln(os.Stderr, "chronos: no existing session found to resume.")
		return 1
	case errors.Is(err, runner.ErrUncertain):
		fmt.Fprintln(os.Stderr, "chronos: run stopped without completion confirmation; see status for details.")
		return 1
	default:
		fmt.Fprintf(os.Stderr, "chronos: %v\n", err)
		return 1
	}
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
