package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/DachengChen/askSQL/querylog"
)

var (
	historySession string
	historyStatus  string
	historyLimit   int
	historySince   time.Duration
	historyStats   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past questions from the query log",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := appConfig.QueryLogPath()
		if err != nil {
			return err
		}
		store, err := querylog.Open(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("open query log %s: %w", path, err)
		}
		defer store.Close()

		if historyStats {
			st, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return pterm.DefaultTable.WithData(pterm.TableData{
				{"total", strconv.Itoa(st.Total)},
				{"succeeded", strconv.Itoa(st.Succeeded)},
				{"failed", strconv.Itoa(st.Failed)},
				{"blocked", strconv.Itoa(st.Blocked)},
				{"avg duration", fmt.Sprintf("%.0f ms", st.AvgDurationMS)},
			}).Render()
		}

		f := querylog.Filter{SessionID: historySession, Status: historyStatus, Limit: historyLimit}
		if historySince > 0 {
			since := time.Now().Add(-historySince)
			f.Since = &since
		}
		entries, err := store.List(cmd.Context(), f)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			pterm.Info.Println("no questions recorded yet")
			return nil
		}

		data := pterm.TableData{{"time", "status", "rows", "ms", "question", "sql / error"}}
		for _, e := range entries {
			detail := e.SQL
			if e.Status != querylog.StatusSuccess && e.Error != "" {
				detail = e.Error
			}
			data = append(data, []string{
				e.CreatedAt.Local().Format("01-02 15:04:05"),
				e.Status,
				strconv.Itoa(e.RowCount),
				strconv.FormatInt(e.DurationMS, 10),
				e.Question,
				oneLine(detail, 60),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	historyCmd.Flags().StringVar(&historySession, "session", "", "only this session")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "success, error or blocked")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only entries newer than this (e.g. 24h)")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "print totals instead of entries")
	rootCmd.AddCommand(historyCmd)
}

func oneLine(s string, max int) string {
	r := []rune(s)
	out := make([]rune, 0, len(r))
	for _, c := range r {
		if c == '\n' || c == '\t' {
			c = ' '
		}
		out = append(out, c)
	}
	if len(out) > max {
		return string(out[:max-1]) + "…"
	}
	return string(out)
}
