package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"portfolio-tracker/importer"
	"portfolio-tracker/internal/app"
	"portfolio-tracker/templates/components"
)

// environment is what every command shares: where to print and how to get an App.
type environment struct {
	out  io.Writer
	open func(ctx context.Context) (*app.App, error)
}

func commands(env *environment) []subcommands.Command {
	return []subcommands.Command{
		&dcfCmd{env: env},
		&importCmd{env: env},
		&quotesCmd{env: env},
	}
}

type dcfCmd struct {
	env      *environment
	ticker   string
	eps      float64
	growth   float64
	terminal float64
	discount float64
}

func (*dcfCmd) Name() string     { return "dcf" }
func (*dcfCmd) Synopsis() string { return "estimate intrinsic value with a two-stage DCF" }
func (*dcfCmd) Usage() string {
	return `folio dcf [-ticker <symbol>] [-eps <n>] [-g <pct>] [-tg <pct>] [-d <pct>]

  Projects EPS for ten years at -g, adds a terminal value growing at -tg and
  discounts everything at -d. Without -eps the EPS is looked up by ticker.
`
}

func (c *dcfCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "ticker", "", "Ticker to value; needed when -eps is not given.")
	f.Float64Var(&c.eps, "eps", math.NaN(), "Earnings per share. Looked up when omitted.")
	f.Float64Var(&c.growth, "g", math.NaN(), "Growth rate for the first ten years, in percent. Defaults to DCF_DEFAULT_GROWTH.")
	f.Float64Var(&c.terminal, "tg", math.NaN(), "Terminal growth rate, in percent. Defaults to DCF_DEFAULT_TERMINAL.")
	f.Float64Var(&c.discount, "d", math.NaN(), "Discount rate, in percent. Defaults to DCF_DEFAULT_DISCOUNT.")
}

func (c *dcfCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.env.open(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Shutdown(ctx)

	defaults := a.Config().DCF
	req := app.ValuationRequest{
		Ticker:         c.ticker,
		GrowthRate:     orDefault(c.growth, defaults.DefaultGrowth),
		TerminalGrowth: orDefault(c.terminal, defaults.DefaultTerminal),
		DiscountRate:   orDefault(c.discount, defaults.DefaultDiscount),
	}
	if !math.IsNaN(c.eps) {
		eps := c.eps
		req.EPS = &eps
	}

	report, err := a.Valuate(ctx, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	tw := tabwriter.NewWriter(c.env.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Year\tEPS\tPresent value")
	for _, p := range report.Projections {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", p.Year, components.MoneyFloat(p.EPS), components.MoneyFloat(p.PresentValue))
	}
	tw.Flush()

	fmt.Fprintf(c.env.out, "\nEPS %s (%s)\n", components.MoneyFloat(report.Input.EPS), report.EPSSource)
	fmt.Fprintf(c.env.out, "Terminal value (discounted) %s\n", components.MoneyFloat(report.DiscountedTerminalValue))
	fmt.Fprintf(c.env.out, "Intrinsic value %s\n", components.MoneyFloat(report.IntrinsicValue))
	if report.CurrentPrice != nil && report.MarginOfSafety != nil {
		fmt.Fprintf(c.env.out, "Price %s, margin of safety %s\n",
			components.MoneyFloat(*report.CurrentPrice),
			components.SignedPercent(decimal.NewFromFloat(*report.MarginOfSafety)))
	}
	return subcommands.ExitSuccess
}

func orDefault(v, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return v
}

type importCmd struct {
	env *environment
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "validate a portfolio workbook and print its positions" }
func (*importCmd) Usage() string {
	return `folio import <file.xlsx>

  Parses the workbook exactly as an upload would and prints what was found.
  Nothing is saved.
`
}

func (*importCmd) SetFlags(*flag.FlagSet) {}

func (c *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one workbook path is required.")
		return subcommands.ExitUsageError
	}

	file, err := os.Open(f.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer file.Close()

	res, err := importer.Import(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	total := decimal.Zero
	tw := tabwriter.NewWriter(c.env.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Ticker\tShares\tAvg cost\tCost basis\tCategory\tSector\tMarket cap")
	for _, p := range res.Positions {
		basis := p.CostBasis()
		total = total.Add(basis)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", p.Ticker, components.Shares(p.Shares),
			components.Money(p.AvgCost), components.Money(basis), p.Category, p.Sector, p.MarketCap)
	}
	tw.Flush()

	fmt.Fprintf(c.env.out, "\n%d positions from sheet %q, cost basis %s\n", len(res.Positions), res.Sheet, components.Money(total))
	if res.Skipped > 0 {
		fmt.Fprintf(c.env.out, "%d blank rows skipped\n", res.Skipped)
	}
	if res.Performance != nil {
		fmt.Fprintf(c.env.out, "performance series with %d points\n", len(res.Performance.Points))
	}
	return subcommands.ExitSuccess
}

type quotesCmd struct {
	env *environment
}

func (*quotesCmd) Name() string     { return "quotes" }
func (*quotesCmd) Synopsis() string { return "print the latest price for one or more tickers" }
func (*quotesCmd) Usage() string {
	return `folio quotes <ticker>...

  Uses the configured quote provider.
`
}

func (*quotesCmd) SetFlags(*flag.FlagSet) {}

func (c *quotesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one ticker is required.")
		return subcommands.ExitUsageError
	}

	a, err := c.env.open(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Shutdown(ctx)

	quotes, err := a.Quotes(ctx, f.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	tw := tabwriter.NewWriter(c.env.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Ticker\tPrice\tSource")
	for _, q := range quotes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", q.Symbol, components.Money(q.Price), q.Source)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}
