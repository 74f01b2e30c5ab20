package cache

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"bondsim/internal/core"
)

// SimulationKey identifies a simulation result by its inputs and the data
// the yield model was trained on.
func SimulationKey(p core.SimulationParameters, fingerprint string) string {
	d := xxhash.New()
	fmt.Fprintf(d, "%s|%d|%d|%d|%d|%s",
		strconv.FormatFloat(p.MonthlyInvestment, 'g', -1, 64),
		p.InvestmentYears, p.BondTenorYears, p.StartYear, p.StartMonth, fingerprint)
	return "sim:" + strconv.FormatUint(d.Sum64(), 16)
}
