package cmd

import (
	"encoding/json"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var schemaJSON bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema description the model sees",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		s, err := rt.Schemas.Schema(cmd.Context())
		if err != nil {
			return err
		}
		if schemaJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		pterm.Println(s.Format())
		return nil
	},
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "print the schema as JSON")
	rootCmd.AddCommand(schemaCmd)
}
