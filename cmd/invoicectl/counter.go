package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jhoicas/rentals-api/internal/bootstrap"
)

var counterCmd = &cobra.Command{
	Use:   "counter <group-id> <year>",
	Short: "Muestra el último número y los números en uso de un grupo emisor",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := strconv.Atoi(args[1])
		if err != nil || year <= 0 {
			return fmt.Errorf("año inválido: %q", args[1])
		}
		return withEngine(cmd, func(ctx context.Context, e *bootstrap.Engine) error {
			c, err := e.Sequence.Counter(ctx, args[0], year)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c == nil {
				fmt.Fprintf(out, "%s/%d: sin emisiones\n", args[0], year)
				return nil
			}
			fmt.Fprintf(out, "%s/%d: último número %d, %d en uso\n", c.GroupID, c.Year, c.LastNumber, len(c.Used))
			for _, u := range c.Used {
				fmt.Fprintf(out, "  %6d  %s\n", u.Number, u.DocumentID)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(counterCmd)
}
