package cli

import (
	"encoding/json"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var profileJSON bool

func init() {
	profileCmd.Flags().BoolVar(&profileJSON, "json", false, "Print the profile as JSON")
	rootCmd.AddCommand(profileCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile <handle>",
	Short: "Looks up an account's public profile.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Profile(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if profileJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}

		t := newTable()
		t.AppendRow(table.Row{"Handle", "@" + p.Handle})
		t.AppendRow(table.Row{"Name", p.Name})
		t.AppendRow(table.Row{"Verified", p.Verified})
		t.AppendRow(table.Row{"Bio", p.Bio})
		t.AppendRow(table.Row{"Location", p.Location})
		t.AppendRow(table.Row{"Posts", p.Posts})
		t.AppendRow(table.Row{"Followers", p.Followers})
		t.AppendRow(table.Row{"Following", p.Following})
		t.AppendRow(table.Row{"Source", p.Source})
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 70}})
		t.Render()
		return nil
	},
}
