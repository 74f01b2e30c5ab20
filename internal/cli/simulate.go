package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"gopkg.in/yaml.v3"

	"bondsim/internal/core"
	"bondsim/internal/report"
	"bondsim/internal/report/xlsx"
	"bondsim/internal/services"
)

type simulateCmd struct {
	env *Env

	flags    core.SimulationParameters
	scenario string
	xlsxPath string
	asJSON   bool
	plain    bool
}

func (*simulateCmd) Name() string     { return "simulate" }
func (*simulateCmd) Synopsis() string { return "simulate monthly bond purchases with coupon reinvestment" }
func (*simulateCmd) Usage() string {
	return `bondsim-cli simulate [-scenario file.yaml] [-monthly n] [-years n] [-tenor n]
                     [-start-year yyyy] [-start-month m] [-xlsx out.xlsx] [-json] [-plain]

  Runs a simulation and prints the summary and monthly ledger. Flags
  override values read from the scenario file.
`
}

func (c *simulateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.scenario, "scenario", "", "YAML file with the simulation parameters")
	f.Float64Var(&c.flags.MonthlyInvestment, "monthly", 0, "amount invested every month")
	f.IntVar(&c.flags.InvestmentYears, "years", 0, "years of monthly purchases")
	f.IntVar(&c.flags.BondTenorYears, "tenor", 0, "bond tenor in years")
	f.IntVar(&c.flags.StartYear, "start-year", 0, "calendar year of the first purchase")
	f.IntVar(&c.flags.StartMonth, "start-month", 0, "calendar month of the first purchase (1-12)")
	f.StringVar(&c.xlsxPath, "xlsx", "", "also write the ledger to this workbook")
	f.BoolVar(&c.asJSON, "json", false, "print the result as JSON")
	f.BoolVar(&c.plain, "plain", false, "print markdown without terminal styling")
}

func (c *simulateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	params, err := c.params(f)
	if err != nil {
		fmt.Fprintf(c.env.Err, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	models, err := c.env.models()
	if err != nil {
		fmt.Fprintf(c.env.Err, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	out, err := services.NewSimulationService(models).Run(ctx, params)
	if err != nil {
		fmt.Fprintf(c.env.Err, "Error: %v\n", err)
		if errors.Is(err, core.ErrInvalidParameter) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}

	if c.xlsxPath != "" {
		if err := xlsx.SaveAs(c.xlsxPath, out.Document()); err != nil {
			fmt.Fprintf(c.env.Err, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(c.env.Err, "Report written to %s\n", c.xlsxPath)
	}

	if c.asJSON {
		enc := json.NewEncoder(c.env.Out)
		enc.SetIndent("", "  ")
		err = enc.Encode(struct {
			RunID   string                    `json:"run_id"`
			Params  core.SimulationParameters `json:"parameters"`
			Summary core.Summary              `json:"summary"`
			Records []core.MonthlyRecord      `json:"records"`
		}{out.RunID, out.Params, out.Result.Summary, out.Result.Records})
		if err != nil {
			fmt.Fprintf(c.env.Err, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	md := report.Markdown(out.Document(), c.env.currency())
	if err := printMarkdown(c.env.Out, md, c.plain); err != nil {
		fmt.Fprintf(c.env.Err, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// params merges the scenario file with the flags set on the command line.
func (c *simulateCmd) params(f *flag.FlagSet) (core.SimulationParameters, error) {
	var p core.SimulationParameters
	if c.scenario != "" {
		var err error
		if p, err = readScenario(c.scenario); err != nil {
			return p, err
		}
	}
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "monthly":
			p.MonthlyInvestment = c.flags.MonthlyInvestment
		case "years":
			p.InvestmentYears = c.flags.InvestmentYears
		case "tenor":
			p.BondTenorYears = c.flags.BondTenorYears
		case "start-year":
			p.StartYear = c.flags.StartYear
		case "start-month":
			p.StartMonth = c.flags.StartMonth
		}
	})
	return p, nil
}

func readScenario(path string) (core.SimulationParameters, error) {
	var p core.SimulationParameters
	f, err := os.Open(path)
	if err != nil {
		return p, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return p, nil
}
