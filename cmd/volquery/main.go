package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/meenmo/volib/cmd/internal/surfacedef"
	"github.com/meenmo/volib/config"
	"github.com/meenmo/volib/logging"
)

type queryOutput struct {
	Expiry  string   `json:"expiry"`
	Strike  *float64 `json:"strike,omitempty"`
	Delta   *float64 `json:"delta,omitempty"`
	Start   string   `json:"start,omitempty"`
	Forward float64  `json:"forward,omitempty"`
	Vol     float64  `json:"vol"`
	Error   string   `json:"error,omitempty"`
}

type surfaceOutput struct {
	TaskID  string        `json:"task_id,omitempty"`
	Kind    string        `json:"kind,omitempty"`
	AssetID string        `json:"asset_id,omitempty"`
	Results []queryOutput `json:"results,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: volquery -input <path> [-config <path>] [-log-level debug]")
	fmt.Fprintln(w, "Build vol surfaces from JSON/YAML definitions and evaluate their queries.")
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("volquery", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inputPath := fs.String("input", "", "JSON or YAML input path (reads stdin if omitted)")
	configPath := fs.String("config", "", "solver config file (optional)")
	logLevel := fs.String("log-level", "warn", "log level")
	help := fs.Bool("h", false, "Show help")
	fs.BoolVar(help, "help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		usage(stderr)
		return 0
	}

	path := strings.TrimSpace(*inputPath)
	if path == "" {
		if f, ok := stdin.(*os.File); ok {
			if stat, err := f.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
				usage(stderr)
				return 2
			}
		}
	}

	if err := logging.Init(logging.Config{Level: *logLevel}); err != nil {
		return exitError(stdout, fmt.Sprintf("init logging: %v", err))
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return exitError(stdout, err.Error())
	}
	config.SetConfig(cfg)

	raw, err := readInput(path, stdin)
	if err != nil {
		return exitError(stdout, fmt.Sprintf("read input: %v", err))
	}
	defs, isArray, err := surfacedef.Decode(raw)
	if err != nil {
		return exitError(stdout, fmt.Sprintf("parse input: %v", err))
	}

	hadError := false
	outputs := make([]surfaceOutput, 0, len(defs))
	for _, d := range defs {
		out := process(d)
		if out.Error != "" {
			hadError = true
		}
		for _, r := range out.Results {
			if r.Error != "" {
				hadError = true
			}
		}
		outputs = append(outputs, out)
	}

	var b []byte
	if isArray {
		b, _ = json.Marshal(outputs)
	} else {
		b, _ = json.Marshal(outputs[0])
	}
	fmt.Fprintln(stdout, string(b))

	if hadError {
		return 1
	}
	return 0
}

func process(d surfacedef.Definition) surfaceOutput {
	out := surfaceOutput{TaskID: d.TaskID, Kind: d.Kind, AssetID: d.AssetID}
	s, err := d.Build()
	if err != nil {
		out.Error = err.Error()
		return out
	}
	for _, q := range d.Queries {
		r := queryOutput{Expiry: q.Expiry, Strike: q.Strike, Delta: q.Delta, Start: q.Start, Forward: q.Forward}
		v, err := surfacedef.Evaluate(s, q)
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Vol = v
		}
		out.Results = append(out.Results, r)
	}
	return out
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(stdin)
}

func exitError(stdout io.Writer, msg string) int {
	b, _ := json.Marshal(surfaceOutput{Error: msg})
	fmt.Fprintln(stdout, string(b))
	return 1
}
