package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"pagehook/internal/platform/config"
	"pagehook/internal/platform/database"
)

func main() {
	target := flag.String("target", "global", "Migration target: global, tenant, or all-tenants")
	orgID := flag.String("org", "", "Organization ID (required for target=tenant)")
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	globalDB, err := database.NewGlobalDB(cfg.Database.Global)
	if err != nil {
		log.Fatalf("Failed to connect to global DB: %v", err)
	}
	defer globalDB.Close()

	pool := database.NewTenantDBPool(cfg.Database.Tenant)
	defer pool.CloseAll()

	switch *target {
	case "global":
		if err := database.MigrateGlobal(globalDB); err != nil {
			log.Fatalf("Global migration failed: %v", err)
		}
	case "tenant":
		if *orgID == "" {
			log.Fatal("--org flag required for tenant migrations")
		}
		if err := migrateTenant(globalDB, pool, *orgID); err != nil {
			log.Fatal(err)
		}
	case "all-tenants":
		ids, err := listOrgIDs(globalDB)
		if err != nil {
			log.Fatalf("Failed to list organizations: %v", err)
		}
		for _, id := range ids {
			log.Printf("Migrating tenant %s", id)
			if err := migrateTenant(globalDB, pool, id); err != nil {
				log.Fatal(err)
			}
		}
	default:
		log.Fatal("Invalid target: must be 'global', 'tenant', or 'all-tenants'")
	}

	fmt.Println("Migration completed successfully")
}

func listOrgIDs(globalDB *sql.DB) ([]string, error) {
	rows, err := globalDB.Query("SELECT id FROM organizations WHERE deleted_at IS NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func migrateTenant(globalDB *sql.DB, pool *database.TenantDBPool, orgID string) error {
	var dbFilePath string
	if err := globalDB.QueryRow("SELECT db_file_path FROM organizations WHERE id = ?", orgID).Scan(&dbFilePath); err != nil {
		return fmt.Errorf("failed to get organization DB path: %w", err)
	}

	db, err := pool.Get(orgID, dbFilePath)
	if err != nil {
		return fmt.Errorf("failed to connect to tenant DB: %w", err)
	}

	if err := database.MigrateTenant(db); err != nil {
		return fmt.Errorf("tenant migration failed for %s: %w", orgID, err)
	}
	return nil
}
