package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"inventory-service/internal/app"
	"inventory-service/internal/auth"
	"inventory-service/internal/config"
	"inventory-service/internal/database"
)

const usage = "expected 'migrate', 'issue-token' or 'reconcile' subcommand"

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	switch os.Args[1] {
	case "migrate":
		err = migrate(ctx, cfg, logger)
	case "issue-token":
		err = issueToken(cfg, os.Args[2:])
	case "reconcile":
		err = reconcile(ctx, cfg, logger)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func migrate(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := database.NewSQLDB(cfg.Database.Driver, cfg.Database.URL, 1, 1, 0, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx, logger); err != nil {
		return err
	}
	fmt.Println("Migrations applied.")
	return nil
}

func issueToken(cfg *config.Config, args []string) error {
	cmd := flag.NewFlagSet("issue-token", flag.ExitOnError)
	id := cmd.String("id", "", "User ID")
	name := cmd.String("name", "", "Username recorded on sales and movements")
	role := cmd.String("role", string(auth.RoleStandard), "Role: admin or standard")
	hours := cmd.Int("hours", cfg.JWT.ExpiryHours, "Token lifetime in hours")
	cmd.Parse(args)

	parsedRole, ok := auth.ParseRole(*role)
	if *name == "" || !ok {
		cmd.PrintDefaults()
		return fmt.Errorf("name and a valid role are required")
	}
	if *id == "" {
		*id = *name
	}

	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(*hours)*time.Hour)
	token, err := tokens.Issue(auth.User{ID: *id, Name: *name, Role: parsedRole})
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// reconcile lista los items cuyo stock no coincide con sus movimientos
func reconcile(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := a.Reports.Reconcile(ctx)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		fmt.Println("All items reconciled.")
		return nil
	}

	fmt.Printf("%-8s %-24s %8s %8s\n", "ID", "PART", "STOCK", "MOVES")
	for _, r := range rows {
		fmt.Printf("%-8d %-24s %8d %8d\n", r.ItemID, r.PartNumber, r.Stock, r.MovementSum)
	}
	return fmt.Errorf("%d items out of balance", len(rows))
}
