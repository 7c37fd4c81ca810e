package cmd

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/DachengChen/askSQL/config"
)

var connCmd = &cobra.Command{
	Use:   "conn",
	Short: "Manage saved connections",
}

var connListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := config.NewConnectionStore()
		if err != nil {
			return err
		}
		if len(store.Connections) == 0 {
			pterm.Info.Println("no saved connections; add one with 'asksql conn add <name> --dsn ...'")
			return nil
		}
		data := pterm.TableData{{"name", "driver", "target", "schema"}}
		for _, c := range store.Connections {
			data = append(data, []string{c.Name, string(c.Driver), c.Display(), c.SchemaName()})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

var connAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Save the connection given by --dsn under a name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagDSN == "" {
			return &config.ConfigurationError{Field: "dsn", Message: "required", Hint: "asksql conn add prod --dsn postgres://..."}
		}
		conn, err := config.ParseDSN(flagDSN)
		if err != nil {
			return err
		}
		conn.Name = args[0]
		store, err := config.NewConnectionStore()
		if err != nil {
			return err
		}
		if err := store.Add(conn); err != nil {
			return err
		}
		if err := store.Save(); err != nil {
			return err
		}
		pterm.Success.Println("saved " + strconv.Quote(conn.Name) + " (" + conn.Display() + ")")
		return nil
	},
}

var connDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved connection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := config.NewConnectionStore()
		if err != nil {
			return err
		}
		if !store.Delete(args[0]) {
			pterm.Warning.Println("no saved connection named " + strconv.Quote(args[0]))
			return nil
		}
		if err := store.Save(); err != nil {
			return err
		}
		pterm.Success.Println("deleted " + strconv.Quote(args[0]))
		return nil
	},
}

func init() {
	connCmd.AddCommand(connListCmd, connAddCmd, connDeleteCmd)
	rootCmd.AddCommand(connCmd)
}
