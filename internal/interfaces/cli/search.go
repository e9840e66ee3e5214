package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/search"
	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/pkg/client"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// searchTable renders ranked candidates.
type searchTable struct{ *search.SearchResult }

func (t searchTable) TableHeaders() []string {
	return []string{"Rank", "Counterparty", "Country", "Score", "Volume (MT)", "Avg USD/MT", "Shipments", "Last Trade", "Fit"}
}

func (t searchTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t.Results))
	for i, r := range t.Results {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			truncateString(r.Name, 40),
			r.Country,
			colorizeScore(r.Score),
			fmt.Sprintf("%.1f", r.TotalVolumeMT),
			fmt.Sprintf("%.2f", r.AvgPriceUSDPerMT),
			strconv.Itoa(r.Shipments),
			formatDate(r.LastTradeDate.Format("2006-01-02"), r.LastTradeDate.IsZero()),
			string(r.VolumeFit),
		})
	}
	return rows
}

// NewSearchCmd creates `search QUERY...`.
func NewSearchCmd() *cobra.Command {
	var (
		scope         string
		country       string
		subcategoryID int64
	)
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Find and rank counterparties for a natural-language trade query",
		Example: `  tradelink search "buy 500 MT dextrose from China"
  tradelink search --scope worldwide --country Thailand "sugar exporters"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return errors.New(errors.ErrCodeQueryEmpty, "query text must not be empty")
			}
			if subcategoryID < 0 {
				return errors.New(errors.ErrCodeValidation, "--subcategory must be positive")
			}

			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			res, err := cc.Client.Counterparties().Search(ctx, client.SearchRequest{
				Query:         query,
				Scope:         scope,
				Country:       country,
				SubcategoryID: subcategoryID,
			})
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			cc.Logger.Debug("search completed")
			return printSearch(cmd, cc, res)
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "search scope: domestic or worldwide")
	cmd.Flags().StringVar(&country, "country", "", "restrict to one partner country")
	cmd.Flags().Int64Var(&subcategoryID, "subcategory", 0, "force a product subcategory id")
	return cmd
}

func printSearch(cmd *cobra.Command, cc *CLIContext, res *search.SearchResult) error {
	if cc.OutputFormat == "json" || cc.OutputFormat == "yaml" {
		return PrintResult(cmd, res)
	}
	out := cmd.OutOrStdout()
	if res.Error == search.ErrorScopeConflict {
		fmt.Fprintf(out, "%s %s\n", color.YellowString("Scope conflict:"), res.Message)
		return nil
	}

	q := res.ParsedQuery
	fmt.Fprintf(out, "%s %s  intent=%s scope=%s family=%s\n",
		color.CyanString("Query:"), res.Query, q.Intent, q.Scope, q.Family)
	if len(res.MatchedSubcategories) > 0 {
		names := make([]string, 0, len(res.MatchedSubcategories))
		for _, m := range res.MatchedSubcategories {
			names = append(names, fmt.Sprintf("%s (%.2f)", m.Name, m.Score))
		}
		fmt.Fprintf(out, "%s %s\n", color.CyanString("Products:"), strings.Join(names, ", "))
	}
	if len(res.Results) == 0 {
		msg := res.Message
		if msg == "" {
			msg = "No matching counterparties found."
		}
		fmt.Fprintln(out, msg)
		return nil
	}
	fmt.Fprint(out, FormatTable(searchTable{res}.TableHeaders(), searchTable{res}.TableRows()))
	if s := res.MarketSnapshot; s != nil {
		fmt.Fprintf(out, "Market: %d counterparties, avg %.2f USD/MT, top country %s\n", s.TotalCount, s.AvgPriceGlobal, s.TopCountry)
	}
	return nil
}

// NewDetailCmd creates `detail NAME --product TEXT`.
func NewDetailCmd() *cobra.Command {
	var product, scope string
	cmd := &cobra.Command{
		Use:   "detail NAME",
		Short: "Show one counterparty's trade profile for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if strings.TrimSpace(product) == "" {
				return errors.New(errors.ErrCodeValidation, "--product is required")
			}
			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			res, err := cc.Client.Counterparties().Detail(ctx, args[0], product, scope)
			if err != nil {
				return fmt.Errorf("detail failed: %w", err)
			}
			return printDetail(cmd, cc, res)
		},
	}
	cmd.Flags().StringVarP(&product, "product", "p", "", "product text, e.g. \"buy dextrose\" (required)")
	cmd.Flags().StringVar(&scope, "scope", "", "search scope: domestic or worldwide")
	return cmd
}

func printDetail(cmd *cobra.Command, cc *CLIContext, res *search.DetailResult) error {
	if cc.OutputFormat == "json" || cc.OutputFormat == "yaml" {
		return PrintResult(cmd, res)
	}
	out := cmd.OutOrStdout()
	p := res.Counterparty
	if p == nil {
		fmt.Fprintln(out, "No profile available.")
		return nil
	}
	fmt.Fprintf(out, "%s %s (%s)\n", color.CyanString("Counterparty:"), p.Name, p.Role)
	fmt.Fprintf(out, "Volume %.1f MT  Avg %.2f USD/MT  Shipments %d  Last %v\n",
		p.Stats.TotalVolumeMT, p.Stats.AvgPrice, p.Stats.Shipments, p.Stats.LastShipment)
	fmt.Fprintf(out, "Partners %d (recent %d)  Countries %s\n",
		p.Relationships.Total, p.Relationships.Recent, strings.Join(p.Countries, ", "))
	fmt.Fprintf(out, "Market %s, price trend %s\n",
		colorizeSentiment(res.MarketContext.Sentiment), res.MarketContext.PriceTrend)
	if len(res.Comparables) > 0 {
		fmt.Fprintln(out, color.CyanString("Comparables:"))
		t := searchTable{&search.SearchResult{Results: res.Comparables}}
		fmt.Fprint(out, FormatTable(t.TableHeaders(), t.TableRows()))
	}
	return nil
}

func colorizeScore(s float64) string {
	v := fmt.Sprintf("%.3f", trade.Round3(s))
	switch {
	case s >= 0.75:
		return color.GreenString(v)
	case s >= 0.4:
		return color.YellowString(v)
	}
	return v
}

func colorizeSentiment(s string) string {
	switch strings.ToLower(s) {
	case "bullish":
		return color.GreenString(s)
	case "bearish":
		return color.RedString(s)
	}
	return s
}

func formatDate(s string, zero bool) string {
	if zero {
		return "-"
	}
	return s
}

//Personal.AI order the ending
