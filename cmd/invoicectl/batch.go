package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/rentals-api/internal/application/billing"
	"github.com/jhoicas/rentals-api/internal/bootstrap"
)

var batchCmd = &cobra.Command{
	Use:   "batch <booking-id>...",
	Short: "Emite documentos para varias reservas",
	Long: `Emite un documento por reserva. Un fallo no detiene a las demás; el resultado
se imprime en el mismo orden de los argumentos.`,
	Example: `  invoicectl batch b-101 b-102 b-103 --skip-existing
  invoicectl batch b-101 --lock`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().Bool("skip-existing", false, "omitir reservas que ya tienen documento")
	batchCmd.Flags().Bool("lock", false, "bloquear cada documento al emitirlo")
	batchCmd.Flags().Int("concurrency", 0, "emisiones simultáneas (0 = valor de configuración)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	skip, _ := cmd.Flags().GetBool("skip-existing")
	lock, _ := cmd.Flags().GetBool("lock")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	return withEngine(cmd, func(ctx context.Context, e *bootstrap.Engine) error {
		results := e.Batch.CompileBatch(ctx, args, billing.BatchOptions{
			SkipExisting:    skip,
			LockImmediately: lock,
			Concurrency:     concurrency,
		})
		failed := printBatch(cmd, results)
		if failed > 0 {
			return fmt.Errorf("%d de %d reservas fallaron", failed, len(results))
		}
		return nil
	})
}

func printBatch(cmd *cobra.Command, results []billing.BatchResult) int {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RESERVA\tESTADO\tNÚMERO\tTOTAL\tDETALLE")
	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(w, "%s\terror\t-\t-\t%v\n", r.BookingID, r.Err)
		case r.Skipped:
			number := "-"
			if r.Document != nil {
				number = r.Document.Number
			}
			fmt.Fprintf(w, "%s\tomitida\t%s\t-\tya emitida\n", r.BookingID, number)
		default:
			fmt.Fprintf(w, "%s\temitida\t%s\t%s\t%s\n", r.BookingID, r.Document.Number, r.Document.Total.StringFixed(2), r.Document.DocumentType)
		}
	}
	w.Flush()
	return failed
}
