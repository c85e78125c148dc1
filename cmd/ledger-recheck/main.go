// ledger-recheck runs the read-only reconciliation checks against one tenant
// (or every tenant) and prints the findings. It never mutates data; fixes are
// applied by hand after reviewing the output.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/ledger-recheck [-client-id <uuid>]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/nimbuscrm/crm_backend/appctx"
	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/nimbuscrm/crm_backend/workflow"
)

func main() {
	clientID := flag.String("client-id", "", "Optional: check only one tenant (uuid string). If empty, checks all tenants.")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	logger := config.GetLogger()

	listCtx := appctx.Set(ctx, appctx.ContextKeySkipTenantScope, true)
	var clients []models.Client
	query := db.WithContext(listCtx).Model(&models.Client{}).Select("id", "name")
	if strings.TrimSpace(*clientID) != "" {
		query = query.Where("id = ?", strings.TrimSpace(*clientID))
	}
	if err := query.Find(&clients).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list clients: %v\n", err)
		os.Exit(1)
	}
	if len(clients) == 0 {
		fmt.Fprintln(os.Stderr, "no clients found to check")
		return
	}

	total := 0
	for _, client := range clients {
		cid := client.ID.String()
		tenantCtx := utils.SetClientIdInContext(ctx, cid)
		findings, err := workflow.RunReconciliationChecks(tenantCtx, logger, cid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "client %s (%s): check failed: %v\n", cid, client.Name, err)
			continue
		}
		if len(findings) == 0 {
			fmt.Printf("client %s (%s): OK\n", cid, client.Name)
			continue
		}
		total += len(findings)
		fmt.Printf("client %s (%s): %d finding(s)\n", cid, client.Name, len(findings))
		for _, f := range findings {
			fmt.Printf("  [%s] %s: %s\n", f.Kind, f.DocumentNumber, f.Detail)
		}
	}

	if total > 0 {
		os.Exit(3)
	}
}
