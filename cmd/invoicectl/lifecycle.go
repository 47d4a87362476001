package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/rentals-api/internal/bootstrap"
	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

var lockCmd = &cobra.Command{
	Use:   "lock <document-id>",
	Short: "Bloquea un borrador (draft → issued)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetInt("version")
		return withEngine(cmd, func(ctx context.Context, e *bootstrap.Engine) error {
			doc, err := e.Lifecycle.Lock(ctx, args[0], version)
			if err != nil {
				return err
			}
			printDocument(cmd, doc)
			return nil
		})
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <document-id>",
	Short: "Anula un documento emitido conservando su número",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetInt("version")
		reason, _ := cmd.Flags().GetString("reason")
		actor, _ := cmd.Flags().GetString("actor")
		return withEngine(cmd, func(ctx context.Context, e *bootstrap.Engine) error {
			doc, err := e.Lifecycle.Cancel(ctx, args[0], version, reason, actor)
			if err != nil {
				return err
			}
			printDocument(cmd, doc)
			return nil
		})
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <document-id>",
	Short: "Regenera el PDF del documento y lo vuelve a subir",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *bootstrap.Engine) error {
			doc, err := e.Lifecycle.RenderArtifact(ctx, args[0])
			if err != nil {
				return err
			}
			printDocument(cmd, doc)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(lockCmd, cancelCmd, renderCmd)
	for _, c := range []*cobra.Command{lockCmd, cancelCmd} {
		c.Flags().Int("version", 0, "versión esperada (0 = no comprobar)")
	}
	cancelCmd.Flags().String("reason", "", "motivo de la anulación")
	cancelCmd.Flags().String("actor", "invoicectl", "operador que anula")
	_ = cancelCmd.MarkFlagRequired("reason")
}

func printDocument(cmd *cobra.Command, doc *entity.InvoiceDocument) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s (%s) v%d\n", doc.DocumentType, doc.Number, doc.Status, doc.Version)
	fmt.Fprintf(out, "  reserva:  %s\n", doc.BookingID)
	fmt.Fprintf(out, "  cliente:  %s\n", doc.Customer.Name)
	fmt.Fprintf(out, "  total:    %s\n", doc.Total.StringFixed(2))
	if doc.ArtifactLocation != "" {
		fmt.Fprintf(out, "  pdf:      %s\n", doc.ArtifactLocation)
	}
	if c := doc.Cancellation; c != nil {
		fmt.Fprintf(out, "  anulado:  %s por %s (%s)\n", c.At.Format("2006-01-02 15:04"), c.Actor, c.Reason)
	}
}
