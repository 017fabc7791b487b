// Seeder CLI. Fills the database with demo products, customers, and
// three months of back-dated invoices.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"go-pos-backoffice/internal/model"
	"go-pos-backoffice/internal/pricing"
	appconfig "go-pos-backoffice/pkg/config"
	"go-pos-backoffice/pkg/database"
	applogger "go-pos-backoffice/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	productCount  int
	customerCount int
	monthCount    int
	invoicesMonth int
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the POS back office database with demo data",
	RunE:  runSeed,
}

func init() {
	rootCmd.Flags().IntVar(&productCount, "products", 100, "number of products to create")
	rootCmd.Flags().IntVar(&customerCount, "customers", 100, "number of customers to create")
	rootCmd.Flags().IntVar(&monthCount, "months", 3, "number of past months to fill with invoices")
	rootCmd.Flags().IntVar(&invoicesMonth, "invoices-per-month", 30, "number of invoices per month")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found")
	}

	cfg := appconfig.Load()
	if err := applogger.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}

	db, err := database.Connect(&cfg.Database)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(
		&model.Product{},
		&model.Customer{},
		&model.TransactionHeader{},
		&model.TransactionDetail{},
		&model.TransactionDiscount{},
		&model.User{},
	); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	products, err := seedProducts(db, rng)
	if err != nil {
		return err
	}
	customers, err := seedCustomers(db, rng)
	if err != nil {
		return err
	}
	if err := seedTransactions(db, rng, products, customers); err != nil {
		return err
	}

	log.Info().Msg("seeding complete")
	return nil
}

func seedProducts(db *gorm.DB, rng *rand.Rand) ([]model.Product, error) {
	products := make([]model.Product, 0, productCount)
	for i := 1; i <= productCount; i++ {
		products = append(products, model.Product{
			Code:  fmt.Sprintf("PROD%05d", i),
			Name:  fmt.Sprintf("Product %d", i),
			Price: decimal.NewFromInt(int64(rng.Intn(490)+10) * 1000),
			Stock: rng.Intn(900) + 100,
		})
	}
	if err := db.CreateInBatches(&products, 50).Error; err != nil {
		return nil, err
	}
	log.Info().Int("count", len(products)).Msg("products seeded")
	return products, nil
}

func seedCustomers(db *gorm.DB, rng *rand.Rand) ([]model.Customer, error) {
	customers := make([]model.Customer, 0, customerCount)
	for i := 1; i <= customerCount; i++ {
		customers = append(customers, model.Customer{
			Code:       fmt.Sprintf("CTM%05d", i),
			Name:       fmt.Sprintf("Customer %d", i),
			Address:    fmt.Sprintf("Jl. Demo No. %d", i),
			PostalCode: fmt.Sprintf("%05d", rng.Intn(90000)+10000),
		})
	}
	if err := db.CreateInBatches(&customers, 50).Error; err != nil {
		return nil, err
	}
	log.Info().Int("count", len(customers)).Msg("customers seeded")
	return customers, nil
}

// seedTransactions writes invoices month by month, oldest first, so invoice
// numbers stay sequential within each month bucket.
func seedTransactions(db *gorm.DB, rng *rand.Rand, products []model.Product, customers []model.Customer) error {
	now := time.Now()
	total := 0

	for m := monthCount - 1; m >= 0; m-- {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -m, 0)
		daysInMonth := monthStart.AddDate(0, 1, -1).Day()

		for seq := 1; seq <= invoicesMonth; seq++ {
			day := rng.Intn(daysInMonth) + 1
			invoiceDate := monthStart.AddDate(0, 0, day-1)
			if invoiceDate.After(now) {
				invoiceDate = now
			}

			customer := customers[rng.Intn(len(customers))]
			header := model.TransactionHeader{
				InvoiceNumber: fmt.Sprintf("INV/%s/%04d", monthStart.Format("0601"), seq),
				CustomerID:    customer.ID,
				InvoiceDate:   invoiceDate,
			}

			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(&header).Error; err != nil {
					return err
				}

				headerTotal := decimal.Zero
				lines := rng.Intn(4) + 1
				for l := 0; l < lines; l++ {
					product := products[rng.Intn(len(products))]
					qty := rng.Intn(10) + 1

					discounts := randomDiscounts(rng)
					steps := make([]pricing.Step, len(discounts))
					for i, d := range discounts {
						steps[i] = pricing.Step{
							Sequence: d.Sequence,
							Type:     pricing.DiscountType(d.Type),
							Value:    d.Value,
						}
					}
					net := pricing.NetPrice(product.Price, steps)
					subtotal := pricing.Subtotal(net, qty)

					detail := model.TransactionDetail{
						TransactionHeaderID: header.ID,
						ProductID:           product.ID,
						Qty:                 qty,
						Price:               product.Price,
						NetPrice:            net,
						Subtotal:            subtotal,
					}
					if err := tx.Create(&detail).Error; err != nil {
						return err
					}
					for i := range discounts {
						discounts[i].TransactionDetailID = detail.ID
						if err := tx.Create(&discounts[i]).Error; err != nil {
							return err
						}
					}
					headerTotal = headerTotal.Add(subtotal)
				}

				return tx.Model(&model.TransactionHeader{}).
					Where("id = ?", header.ID).
					Update("total", headerTotal).Error
			})
			if err != nil {
				return err
			}
			total++
		}
	}

	log.Info().Int("count", total).Msg("transactions seeded")
	return nil
}

func randomDiscounts(rng *rand.Rand) []model.TransactionDiscount {
	n := rng.Intn(3)
	discounts := make([]model.TransactionDiscount, 0, n)
	for i := 0; i < n; i++ {
		d := model.TransactionDiscount{Sequence: i + 1}
		if rng.Intn(2) == 0 {
			d.Type = model.DiscountPercentage
			d.Value = decimal.NewFromInt(int64(rng.Intn(20) + 1))
		} else {
			d.Type = model.DiscountAmount
			d.Value = decimal.NewFromInt(int64(rng.Intn(10)+1) * 1000)
		}
		discounts = append(discounts, d)
	}
	return discounts
}
