package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func TablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the saved Q-tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			st, err := openStore(ctx, c, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			names, err := st.List(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}
