// Command judge adjudicates one phase from files: a DFEN board and an
// order file with one "power: orders" line per power. It prints each
// result and the board of the following phase.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/polite-betrayal/judge/internal/rules"
	"github.com/freeeve/polite-betrayal/judge/pkg/diplomacy"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "judge:", err)
		}
		os.Exit(2)
	}
}

type options struct {
	board      string
	orders     string
	rulesFile  string
	preset     string
	mapFile    string
	printRules bool
	jsonOut    bool
	verbose    bool
}

func run(args []string, stdout io.Writer) error {
	var opts options
	fs := flag.NewFlagSet("judge", flag.ContinueOnError)
	fs.StringVar(&opts.board, "board", "", "DFEN board file (empty = initial position)")
	fs.StringVar(&opts.orders, "orders", "", "Order file, one \"power: order ; order\" line per power (- = stdin)")
	fs.StringVar(&opts.rulesFile, "rules", "", "YAML rules file")
	fs.StringVar(&opts.preset, "preset", "", "Rules preset (datc, dptg, daide)")
	fs.StringVar(&opts.mapFile, "map", "", "Map file (empty = standard map)")
	fs.BoolVar(&opts.printRules, "print-rules", false, "Print the effective rules as YAML and exit")
	fs.BoolVar(&opts.jsonOut, "json", false, "Output the phase result as JSON")
	fs.BoolVar(&opts.verbose, "v", false, "Log adjudication decisions")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	logger := log.Logger.Level(level)

	r, err := loadRules(opts)
	if err != nil {
		return err
	}
	if opts.printRules {
		out, err := rules.Marshal(r)
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	}
	if opts.orders == "" {
		return fmt.Errorf("-orders is required")
	}

	m := diplomacy.StandardMap()
	if opts.mapFile != "" {
		if m, err = loadMap(opts.mapFile); err != nil {
			return err
		}
	}
	gs, err := loadBoard(opts.board)
	if err != nil {
		return err
	}
	orders, err := loadOrders(opts.orders)
	if err != nil {
		return err
	}

	res, err := diplomacy.NewAdjudicator(m, r, logger).Adjudicate(gs, orders)
	if err != nil {
		return err
	}
	diplomacy.AdvanceState(gs, m)
	next := diplomacy.EncodeDFEN(gs)

	if opts.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Result *diplomacy.PhaseResult `json:"result"`
			Board  string                 `json:"board"`
		}{res, next})
	}

	for _, ro := range res.Results {
		fmt.Fprintln(stdout, ro.String())
	}
	for _, ro := range res.Rejected {
		fmt.Fprintln(stdout, "rejected", ro.String())
	}
	fmt.Fprintln(stdout, next)
	return nil
}

func loadRules(opts options) (diplomacy.Rules, error) {
	if opts.rulesFile != "" {
		if opts.preset != "" {
			return diplomacy.Rules{}, fmt.Errorf("-preset and -rules are exclusive; name the preset inside the rules file")
		}
		return rules.Load(opts.rulesFile)
	}
	return diplomacy.RulesPreset(strings.ToLower(opts.preset))
}

func loadMap(path string) (*diplomacy.DiplomacyMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return diplomacy.ParseMap(f)
}

func loadBoard(path string) (*diplomacy.GameState, error) {
	if path == "" {
		return diplomacy.NewInitialState(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return diplomacy.DecodeDFEN(strings.TrimSpace(string(data)))
}

func loadOrders(path string) (map[diplomacy.Power][]diplomacy.DSONOrder, error) {
	if path == "-" {
		return diplomacy.ParseOrderFile(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return diplomacy.ParseOrderFile(f)
}
