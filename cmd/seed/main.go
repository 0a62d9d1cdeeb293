// Команда seed наполняет каталог демонстрационными товарами, чтобы
// отмены с возвратом стока было что возвращать в dev-окружении.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	"github.com/vladislavdragonenkov/storefront/internal/storage/retry"
)

const defaultTimeout = 30 * time.Second

func main() {
	var (
		dsn   string
		stock int
	)

	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: DATABASE_URL)")
	flag.IntVar(&stock, "stock", 25, "initial stock per product")
	flag.Parse()

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		fail("DATABASE_URL (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		fail("ensure schema: %v", err)
	}

	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	exec := retry.NewExecutor(retry.DefaultConfig(), store, logger.WithField("component", "seed"))
	products := retry.WrapProducts(postgres.NewProductRepository(store), exec)

	now := time.Now().UTC()
	catalog := []domain.Product{
		{ID: "ghee-a2-500", SKU: "GHEE-A2-500", Name: "A2 Cow Ghee 500ml", PriceMinor: 89900},
		{ID: "honey-raw-350", SKU: "HONEY-RAW-350", Name: "Raw Forest Honey 350g", PriceMinor: 44900},
		{ID: "oil-coconut-1l", SKU: "OIL-COCO-1L", Name: "Cold-Pressed Coconut Oil 1L", PriceMinor: 59900},
		{ID: "rice-brown-1kg", SKU: "RICE-BRN-1KG", Name: "Organic Brown Rice 1kg", PriceMinor: 18900},
		{ID: "jaggery-750", SKU: "JAG-750", Name: "Palm Jaggery 750g", PriceMinor: 24900},
	}

	seeded := 0
	for _, product := range catalog {
		product.Stock = int32(stock)
		product.CreatedAt = now
		product.UpdatedAt = now

		if err := products.Create(product); err != nil {
			if domain.KindOf(err) == domain.KindInvalidInput {
				// Товар уже есть, пополняем остаток вместо вставки.
				if err := products.AdjustStock(product.ID, int32(stock)); err != nil && !errors.Is(err, domain.ErrProductNotFound) {
					fail("adjust stock for %s: %v", product.ID, err)
				}
				continue
			}
			fail("seed product %s: %v", product.ID, err)
		}
		seeded++
	}

	fmt.Printf("seed ok: created=%d topped_up=%d stock=%d\n", seeded, len(catalog)-seeded, stock)
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
