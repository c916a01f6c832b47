// Command export dumps the invoice queue to an xlsx workbook for the
// bookkeeper.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/subosito/gotenv"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/beanfreaks/invoice-ingest/internal/config"
	"github.com/beanfreaks/invoice-ingest/internal/queue"
	"github.com/beanfreaks/invoice-ingest/pkg/database"
	"github.com/beanfreaks/invoice-ingest/pkg/utils"
)

var headers = []string{
	"Queued", "Status", "Supplier", "Reference", "Invoice Date", "Due Date",
	"Credit", "Postcode", "Ledger", "VAT Net", "Zero-Rated Net", "VAT",
	"Total", "Sage ID", "Warnings",
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	output := flag.String("out", "invoice-queue.xlsx", "output xlsx path")
	pendingOnly := flag.Bool("pending", false, "export only records not yet posted")
	flag.Parse()

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	store, err := queue.NewStore(db, logger)
	if err != nil {
		logger.Fatal("Failed to open queue", zap.Error(err))
	}

	ctx := context.Background()
	var items []*queue.Item
	if *pendingOnly {
		items, err = store.ListPending(ctx)
	} else {
		items, err = store.ListAll(ctx)
	}
	if err != nil {
		logger.Fatal("Failed to list queue", zap.Error(err))
	}

	if err := writeWorkbook(*output, items); err != nil {
		logger.Fatal("Failed to write workbook", zap.Error(err))
	}

	logger.Info("Queue exported",
		zap.String("path", *output),
		zap.Int("records", len(items)))
}

func writeWorkbook(path string, items []*queue.Item) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Invoices"
	f.SetSheetName("Sheet1", sheet)

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}

	for i, item := range items {
		rec := item.Record
		dueDate := ""
		if rec.DueDate != nil {
			dueDate = rec.DueDate.Format("2006-01-02")
		}
		ledgerAccount := ""
		if rec.LedgerAccount != nil {
			ledgerAccount = fmt.Sprintf("%d", *rec.LedgerAccount)
		}
		warnings := ""
		for j, w := range rec.Warnings {
			if j > 0 {
				warnings += "; "
			}
			warnings += w
		}

		values := []any{
			item.CreatedAt.Format("2006-01-02 15:04"),
			item.Status,
			rec.Supplier,
			rec.SupplierReference,
			rec.InvoiceDate.Format("2006-01-02"),
			dueDate,
			rec.IsCredit,
			rec.DeliverToPostcode,
			ledgerAccount,
			rec.VATNet.InexactFloat64(),
			rec.NonVATNet.InexactFloat64(),
			rec.VATAmount.InexactFloat64(),
			rec.Total.InexactFloat64(),
			item.SageID,
			warnings,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(path)
}
