package cmd

import (
	"github.com/spf13/cobra"

	"github.com/meinhoongagan/carenest/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, flush, err := bootstrap()
		if err != nil {
			return err
		}
		defer flush()
		return db.Migrate(db.GetDB())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
