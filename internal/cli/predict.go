package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"time"

	"github.com/google/subcommands"

	"bondsim/internal/core"
)

type predictCmd struct {
	env *Env

	year   int
	month  int
	tenor  int
	asJSON bool
}

func (*predictCmd) Name() string     { return "predict" }
func (*predictCmd) Synopsis() string { return "predict the annual yield of a bond issue" }
func (*predictCmd) Usage() string {
	return `bondsim-cli predict -year yyyy -month m -tenor n [-json]

  Prints the annual yield predicted for a bond of the given tenor issued in
  the given month, with the matching semi-annual coupon rate.
`
}

func (c *predictCmd) SetFlags(f *flag.FlagSet) {
	now := time.Now()
	f.IntVar(&c.year, "year", now.Year(), "issue year")
	f.IntVar(&c.month, "month", int(now.Month()), "issue month (1-12)")
	f.IntVar(&c.tenor, "tenor", 0, "bond tenor in years")
	f.BoolVar(&c.asJSON, "json", false, "print the prediction as JSON")
}

func (c *predictCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	switch {
	case c.year <= 0:
		fmt.Fprintln(c.env.Err, "Error: -year must be positive")
		return subcommands.ExitUsageError
	case c.month < 1 || c.month > 12:
		fmt.Fprintln(c.env.Err, "Error: -month must be between 1 and 12")
		return subcommands.ExitUsageError
	case c.tenor < 1:
		fmt.Fprintln(c.env.Err, "Error: -tenor must be at least 1")
		return subcommands.ExitUsageError
	}

	oracle, err := c.env.oracle(ctx)
	if err != nil {
		fmt.Fprintf(c.env.Err, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	y, err := oracle.Predict(c.year, c.month, c.tenor)
	if err == nil && (math.IsNaN(y) || math.IsInf(y, 0) || y < 0) {
		err = fmt.Errorf("%w: prediction %v", core.ErrOracleUnavailable, y)
	}
	if err != nil {
		fmt.Fprintf(c.env.Err, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	yield := core.RoundYield(y)
	rate := core.RoundRate(y / 2 / 100)
	if c.asJSON {
		_ = json.NewEncoder(c.env.Out).Encode(map[string]any{
			"year":                       c.year,
			"month":                      c.month,
			"tenor_years":                c.tenor,
			"predicted_annual_yield_pct": yield,
			"semi_annual_rate":           rate,
		})
		return subcommands.ExitSuccess
	}
	fmt.Fprintf(c.env.Out, "%04d-%02d %dY: %s%% (semi-annual rate %s)\n",
		c.year, c.month, c.tenor,
		core.FormatFixed(yield, core.YieldPlaces),
		core.FormatFixed(rate, core.RatePlaces))
	return subcommands.ExitSuccess
}
