package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ikkim/gomarketplace-cart/config"
	"github.com/ikkim/gomarketplace-cart/internal/app/model"
	"github.com/ikkim/gomarketplace-cart/internal/app/repository"
	"github.com/ikkim/gomarketplace-cart/internal/app/service"
	"github.com/ikkim/gomarketplace-cart/internal/storage"
	"github.com/xuri/excelize/v2"
)

// seedRow is one sheet line: a product and how many units to add.
type seedRow struct {
	Product  model.Product
	Quantity int
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path> [-y]")
	}

	filePath := os.Args[1]
	assumeYes := len(os.Args) > 2 && os.Args[2] == "-y"

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	rows, skipped, err := readCartRowsFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}
	fmt.Printf("Rows to import: %d (skipped %d)\n", len(rows), skipped)

	if !assumeYes {
		fmt.Printf("Import into %s storage under %q? (yes/no): ", cfg.Storage.Driver, cfg.Cart.StorageKey)
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	ctx := context.Background()
	kv, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open storage:", err)
	}
	defer kv.Close()

	store := service.NewCartService(repository.NewCartRepository(kv, cfg.Cart.StorageKey), cfg.Cart.PersistTimeout)
	products, err := seedCart(ctx, store, rows, cfg.Cart.PersistTimeout)
	if err != nil {
		log.Fatal("Failed to seed cart:", err)
	}

	fmt.Println("Import completed successfully!")
	for _, item := range products {
		fmt.Printf("  %-10s %-30s x%d  %.2f\n", item.ID, item.Title, item.Quantity, item.Price)
	}
}

// seedCart hydrates store, adds every unit and waits for the final write.
func seedCart(ctx context.Context, store service.CartService, rows []seedRow, timeout time.Duration) ([]model.CartItem, error) {
	if err := store.Hydrate(ctx); err != nil {
		return nil, err
	}

	var last *service.Mutation
	for _, row := range rows {
		for i := 0; i < row.Quantity; i++ {
			last = store.AddToCart(row.Product)
		}
	}
	if last == nil {
		return store.Products(), nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := last.Persist.Wait(waitCtx); err != nil {
		return nil, err
	}
	return last.Products, nil
}

// readCartRowsFromXLSX reads the first sheet. The header row names the
// columns: id, title, image_url, price and quantity (defaults to 1).
func readCartRowsFromXLSX(filePath string) ([]seedRow, int, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, 0, fmt.Errorf("no sheets found in XLSX file")
	}

	// raw values keep numeric cells free of the sheet's display format
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no data found in XLSX file")
	}

	columns := make(map[string]int)
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["id"]; !ok {
		return nil, 0, fmt.Errorf("header row has no id column")
	}

	cell := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []seedRow
	skipped := 0
	for _, row := range rows[1:] {
		id := cell(row, "id")
		if id == "" {
			skipped++
			continue
		}

		price := 0.0
		if raw := cell(row, "price"); raw != "" {
			price, err = parsePrice(raw)
			if err != nil || price < 0 {
				skipped++
				continue
			}
		}

		quantity := 1
		if raw := cell(row, "quantity"); raw != "" {
			quantity, err = strconv.Atoi(raw)
			if err != nil || quantity < 1 {
				skipped++
				continue
			}
		}

		imageURL := cell(row, "image_url")
		if imageURL == "" {
			imageURL = cell(row, "imageurl")
		}

		out = append(out, seedRow{
			Product: model.Product{
				ID:       id,
				Title:    cell(row, "title"),
				ImageURL: imageURL,
				Price:    price,
			},
			Quantity: quantity,
		})
	}

	return out, skipped, nil
}

// parsePrice accepts "1299.90", "1,299.90" and the decimal comma form "199,90".
// A comma is a decimal separator only when the value has no '.'.
func parsePrice(raw string) (float64, error) {
	if strings.Contains(raw, ".") {
		raw = strings.ReplaceAll(raw, ",", "")
	} else if strings.Count(raw, ",") == 1 {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	return strconv.ParseFloat(raw, 64)
}
