// Command ordersctl prints read-only views of orders, tracking logs and the
// event outbox for support staff.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/vaidashi/garment-order-tracker/internal/config"
	"github.com/vaidashi/garment-order-tracker/internal/database"
	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/repository"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

const usage = `usage: ordersctl <command> [flags]

commands:
  orders        list orders (-buyer, -manager, -product, -status, -limit)
  tracking ID   print the tracking log of one order
  outbox        count outbox messages by status
  dead-letters  list dead letter messages (-status, -limit)
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Failed to read .env file: %v", err)
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Storage != config.StoragePostgres {
		log.Fatalf("ordersctl reads PostgreSQL; STORAGE=%s has nothing to inspect", cfg.Storage)
	}

	l := logger.NewLoggerWithOutput("error", os.Stderr, os.Stderr)

	db, err := database.New(cfg, l)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	store := repository.NewPostgresStore(db, l)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = run(ctx, store, os.Args[1], os.Args[2:])
	cancel()
	if err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, store *repository.PostgresStore, command string, args []string) error {
	switch command {
	case "orders":
		fset := flag.NewFlagSet("orders", flag.ExitOnError)
		buyer := fset.String("buyer", "", "only orders placed by this buyer id")
		manager := fset.String("manager", "", "only orders against this manager's products")
		product := fset.String("product", "", "only orders for this product id")
		status := fset.String("status", "", "only orders in this status")
		limit := fset.Int("limit", 50, "maximum rows")
		_ = fset.Parse(args)

		filter := repository.OrderFilter{
			BuyerID:   *buyer,
			ManagerID: *manager,
			ProductID: *product,
			Limit:     *limit,
		}
		if *status != "" {
			parsed, ok := models.ParseOrderStatus(*status)
			if !ok {
				return fmt.Errorf("unknown order status %q", *status)
			}
			filter.Statuses = []models.OrderStatus{parsed}
		}

		orders, err := store.ListOrders(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		return renderOrders(os.Stdout, orders)

	case "tracking":
		if len(args) != 1 {
			return errors.New("usage: ordersctl tracking ORDER_ID")
		}
		if _, err := store.GetOrder(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to load order %s: %w", args[0], err)
		}
		events, err := store.ListTrackingEvents(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to list tracking events: %w", err)
		}
		return renderTracking(os.Stdout, events)

	case "outbox":
		counts, err := store.Outbox().CountByStatus(ctx)
		if err != nil {
			return fmt.Errorf("failed to count outbox messages: %w", err)
		}
		return renderOutboxCounts(os.Stdout, counts)

	case "dead-letters":
		fset := flag.NewFlagSet("dead-letters", flag.ExitOnError)
		status := fset.String("status", "", "only messages in this status")
		limit := fset.Int("limit", 50, "maximum rows")
		_ = fset.Parse(args)

		messages, total, err := store.DeadLetters().List(ctx, models.DeadLetterStatus(*status), *limit, 0)
		if err != nil {
			return fmt.Errorf("failed to list dead letters: %w", err)
		}
		if err := renderDeadLetters(os.Stdout, messages); err != nil {
			return err
		}
		fmt.Printf("%d of %d shown\n", len(messages), total)
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}
