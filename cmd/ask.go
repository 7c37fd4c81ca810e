package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/DachengChen/askSQL/assistant"
	"github.com/DachengChen/askSQL/export"
	"github.com/DachengChen/askSQL/followup"
	"github.com/DachengChen/askSQL/viz"
)

var (
	askJSON    bool
	askExport  string
	askExplain bool
)

// errTurnFailed is returned after a failed turn has been printed.
var errTurnFailed = errors.New("question failed")

var askCmd = &cobra.Command{
	Use:   "ask <question> [follow-up...]",
	Short: "Answer one or more questions and exit",
	Long: `The ask command answers each argument in order within one conversation,
so later arguments can refer to earlier answers:

  asksql ask --dsn shop.duckdb "Show total sales by region" "as a pie chart"

Only read-only SQL runs unless allow_mutations is set in the config.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		session := rt.Sessions.Create()
		defer rt.Sessions.Delete(session.ID)

		var failed bool
		for _, q := range args {
			resp := askOne(ctx, rt, session, q)
			if resp.Error != nil {
				failed = true
				continue
			}
			if askExplain && resp.SQL != "" {
				resp.Explanation = rt.Pipeline.Explain(ctx, q, resp.SQL)
			}
			if askJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(resp); err != nil {
					return err
				}
			} else {
				printResponse(resp)
			}
		}

		if askExport != "" {
			last, ok := session.LastResult()
			if !ok {
				pterm.Warning.Println("nothing to export")
			} else if err := export.ToFile(askExport, last); err != nil {
				return err
			} else {
				pterm.Success.Printfln("exported %d rows to %s", last.RowCount, askExport)
			}
		}
		if failed {
			return errTurnFailed
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print each response as JSON")
	askCmd.Flags().StringVar(&askExport, "export", "", "write the last result to a .csv or .parquet file")
	askCmd.Flags().BoolVar(&askExplain, "explain", false, "ask the model to explain each query")
	rootCmd.AddCommand(askCmd)
}

func askOne(ctx context.Context, rt *assistant.Runtime, s *assistant.Session, q string) *assistant.Response {
	var spinner *pterm.SpinnerPrinter
	if !askJSON {
		spinner, _ = pterm.DefaultSpinner.Start(q)
	}
	resp, _ := rt.Pipeline.Ask(ctx, s, q)
	if spinner != nil {
		if resp.Error != nil {
			spinner.Fail(q)
		} else {
			spinner.Success(q)
		}
	}
	if resp.Error != nil {
		printFailure(resp)
	}
	return resp
}

func printResponse(resp *assistant.Response) {
	if resp.SQL != "" {
		pterm.DefaultBox.WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("SQL")).Println(resp.SQL)
	}
	if resp.Explanation != "" {
		pterm.Println(resp.Explanation)
		pterm.Println()
	}
	if resp.Result != nil && resp.Chart != nil {
		pterm.Println(viz.Render(*resp.Chart, resp.Result, pterm.GetTerminalWidth()))
		if resp.Chart.Reason != "" {
			pterm.Println(pterm.Gray(resp.Chart.Reason))
		}
	}
	if resp.Notice != "" {
		pterm.Warning.Println(resp.Notice)
	}
	printSuggestions("You could also ask:", resp.FollowUps)
}

func printFailure(resp *assistant.Response) {
	e := resp.Error
	pterm.Error.Println(e.Message)
	if resp.SQL != "" {
		pterm.Println(pterm.Gray(resp.SQL))
	}
	printSuggestions("Try instead:", e.Recovery)
}

func printSuggestions(title string, items []followup.Suggestion) {
	if len(items) == 0 {
		return
	}
	bullets := make([]pterm.BulletListItem, len(items))
	for i, s := range items {
		bullets[i] = pterm.BulletListItem{Level: 0, Text: s.Question}
	}
	pterm.Println(pterm.NewStyle(pterm.Bold).Sprint(title))
	_ = pterm.DefaultBulletList.WithItems(bullets).Render()
}
