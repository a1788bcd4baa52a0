package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/meenmo/volib/cmd/internal/surfacedef"
	"github.com/meenmo/volib/config"
	"github.com/meenmo/volib/logging"
	"github.com/meenmo/volib/utils"
	"github.com/meenmo/volib/vol"
)

type ladderRow struct {
	Label     string  `json:"label"`
	Pillar    string  `json:"pillar"`
	Forward   float64 `json:"forward"`
	BaseVol   float64 `json:"base_vol"`
	BumpedVol float64 `json:"bumped_vol"`
	Change    float64 `json:"change"`
}

type ladderOutput struct {
	TaskID  string      `json:"task_id,omitempty"`
	AssetID string      `json:"asset_id,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Bump    float64     `json:"bump"`
	Ladder  []ladderRow `json:"ladder,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ladderParams struct {
	bump     float64
	kind     string
	mode     vol.BumpMode
	lastDate *time.Time
	forward  float64
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: vegaladder -input <path> [-bump 0.01] [-kind vega|rega|sega] [-mode parallel|outer] [-last-date 2026-01-02]")
	fmt.Fprintln(w, "Print the ATM vol change at each pillar under bucketed vol scenarios.")
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vegaladder", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inputPath := fs.String("input", "", "JSON or YAML input path (reads stdin if omitted)")
	configPath := fs.String("config", "", "solver config file (optional)")
	logLevel := fs.String("log-level", "warn", "log level")
	bump := fs.Float64("bump", 0.01, "bump size in vol (0.01 = 1 vol point)")
	kind := fs.String("kind", "vega", "scenario kind: vega, rega or sega")
	mode := fs.String("mode", "parallel", "wing bump mode for rega/sega: parallel or outer")
	lastDate := fs.String("last-date", "", "last pillar of interest (optional)")
	forward := fs.Float64("forward", 100, "forward for pillars without a quoted forward")
	help := fs.Bool("h", false, "Show help")
	fs.BoolVar(help, "help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		usage(stderr)
		return 0
	}

	p := ladderParams{bump: *bump, kind: strings.ToLower(*kind), forward: *forward}
	switch strings.ToLower(*mode) {
	case "parallel":
		p.mode = vol.BumpParallel
	case "outer":
		p.mode = vol.BumpOuterWingProportional
	default:
		fmt.Fprintf(stderr, "unknown -mode %q\n", *mode)
		return 2
	}
	switch p.kind {
	case "vega", "rega", "sega":
	default:
		fmt.Fprintf(stderr, "unknown -kind %q\n", *kind)
		return 2
	}
	if s := strings.TrimSpace(*lastDate); s != "" {
		d, err := utils.ParseDate(s)
		if err != nil {
			fmt.Fprintf(stderr, "invalid -last-date: %v\n", err)
			return 2
		}
		p.lastDate = &d
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

	var raw []byte
	if path != "" {
		raw, err = os.ReadFile(path)
	} else {
		raw, err = io.ReadAll(stdin)
	}
	if err != nil {
		return exitError(stdout, fmt.Sprintf("read input: %v", err))
	}
	defs, isArray, err := surfacedef.Decode(raw)
	if err != nil {
		return exitError(stdout, fmt.Sprintf("parse input: %v", err))
	}

	hadError := false
	outputs := make([]ladderOutput, 0, len(defs))
	for _, d := range defs {
		out := ladderOutput{TaskID: d.TaskID, AssetID: d.AssetID, Kind: p.kind, Bump: p.bump}
		rows, err := ladder(d, p)
		if err != nil {
			hadError = true
			out.Error = err.Error()
		}
		out.Ladder = rows
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

func scenarios(s vol.Surface, p ladderParams) (map[string]vol.Surface, error) {
	if p.kind == "vega" {
		return s.GetATMVegaScenarios(p.bump, p.lastDate)
	}
	rf, ok := s.(*vol.RiskyFly)
	if !ok {
		return nil, fmt.Errorf("%s scenarios: %w", p.kind, vol.ErrNotSupported)
	}
	if p.kind == "rega" {
		return rf.GetRegaScenarios(p.bump, p.lastDate, p.mode)
	}
	return rf.GetSegaScenarios(p.bump, p.lastDate, p.mode)
}

func ladder(d surfacedef.Definition, p ladderParams) ([]ladderRow, error) {
	s, err := d.Build()
	if err != nil {
		return nil, err
	}
	scen, err := scenarios(s, p)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(scen))
	for l := range scen {
		labels = append(labels, l)
	}
	pillarOf := func(label string) time.Time {
		if t, ok := s.PillarDatesForLabel(label); ok {
			return t
		}
		return utils.AddMonth(s.OriginDate(), 12)
	}
	sort.Slice(labels, func(i, j int) bool { return pillarOf(labels[i]).Before(pillarOf(labels[j])) })

	rows := make([]ladderRow, 0, len(labels))
	for _, l := range labels {
		pillar := pillarOf(l)
		fwd := d.ForwardAt(pillar, p.forward)
		base, err := surfacedef.ATMVol(s, pillar, fwd)
		if err != nil {
			return rows, fmt.Errorf("pillar %s: %w", l, err)
		}
		bumped, err := surfacedef.ATMVol(scen[l], pillar, fwd)
		if err != nil {
			return rows, fmt.Errorf("pillar %s: %w", l, err)
		}
		rows = append(rows, ladderRow{
			Label:     l,
			Pillar:    utils.FormatDate(pillar),
			Forward:   fwd,
			BaseVol:   base,
			BumpedVol: bumped,
			Change:    bumped - base,
		})
	}
	return rows, nil
}

func exitError(stdout io.Writer, msg string) int {
	b, _ := json.Marshal(ladderOutput{Error: msg})
	fmt.Fprintln(stdout, string(b))
	return 1
}
