package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"
)

type exportCmd struct {
	env   *Env
	runID string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "queue the spreadsheet export of a stored run" }
func (*exportCmd) Usage() string {
	return `bondsim-cli export -run <id>

  Publishes an export job for the run. The worker copies the ledger to the
  export spreadsheet.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.runID, "run", "", "run id to export")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id := strings.TrimSpace(c.runID)
	if id == "" {
		fmt.Fprintln(c.env.Err, "Error: -run is required")
		return subcommands.ExitUsageError
	}
	pub, err := c.env.publisher()
	if err != nil {
		fmt.Fprintf(c.env.Err, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := pub.PublishReportExport(ctx, id); err != nil {
		fmt.Fprintf(c.env.Err, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(c.env.Out, "Export of run %s queued\n", id)
	return subcommands.ExitSuccess
}
