package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tablekit/tablekit/server/schema"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the registered tables and their fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		registry, err := schema.LoadRegistry(cfg)
		if err != nil {
			return err
		}

		for _, name := range registry.TableNames() {
			desc, _ := registry.Table(name)
			fmt.Printf("%s\n", name)
			for _, f := range desc.Fields {
				flags := ""
				if f.PrimaryKey {
					flags += " pk"
				}
				if f.Exportable {
					flags += " exportable"
				}
				if f.Filterable {
					flags += " filterable"
				}
				fmt.Printf("  %-20s %s%s\n", f.Name, f.Type, flags)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}
