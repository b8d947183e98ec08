package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/frahmantamala/credify/internal/debt"
	"github.com/spf13/cobra"
)

var seedClear bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the ledger with sample debts for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app, err := setup(ctx)
		if err != nil {
			log.Fatalf("failed to init app: %v", err)
		}
		defer app.Close()

		if seedClear {
			removed, err := app.Service.ClearAll(ctx)
			if err != nil {
				log.Fatalf("failed to clear ledger: %v", err)
			}
			fmt.Println("Cleared debts:", removed)
		}

		today := app.Service.Today()
		rate := func(v float64) *float64 { return &v }

		samples := []struct {
			dto      debt.CreateDebtDTO
			payments []float64
		}{
			{dto: debt.CreateDebtDTO{DebtorName: "Ana Souza", OriginalAmount: 1000, DueDate: today.AddDate(0, 0, -10)}},
			{dto: debt.CreateDebtDTO{DebtorName: "Bruno Lima", OriginalAmount: 250, DueDate: today.AddDate(0, 0, 1), InterestRate: rate(1.5)}},
			{dto: debt.CreateDebtDTO{DebtorName: "Carla Dias", OriginalAmount: 600, DueDate: today.AddDate(0, 0, 20)}, payments: []float64{200}},
			{dto: debt.CreateDebtDTO{DebtorName: "Diego Alves", OriginalAmount: 80, DueDate: today.AddDate(0, 0, -3), InterestRate: rate(0)}, payments: []float64{80}},
		}

		for _, s := range samples {
			view, err := app.Service.CreateDebt(ctx, s.dto)
			if err != nil {
				log.Fatalf("failed to seed debt for %s: %v", s.dto.DebtorName, err)
			}
			for _, amount := range s.payments {
				if view, err = app.Service.AddPayment(ctx, view.ID, debt.AddPaymentDTO{Amount: amount, Note: "seed"}); err != nil {
					log.Fatalf("failed to seed payment for %s: %v", s.dto.DebtorName, err)
				}
			}
			fmt.Printf("Seeded debt: %s (%s)\n", view.DebtorName, view.StatusLabel)
		}

		fmt.Println("Sample debts seeded successfully")
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedClear, "clear", false, "remove every debt before seeding")
}
