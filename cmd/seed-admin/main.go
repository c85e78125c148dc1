// seed-admin creates (or resets the password of) an admin user for a tenant.
// If the tenant does not exist yet it is created too.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/seed-admin -email admin@example.com -password secret -client "Acme Ltd"
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
	"gorm.io/gorm"
)

func main() {
	email := flag.String("email", "", "Admin user email (required)")
	password := flag.String("password", "", "Admin user password (required, min 8 chars)")
	name := flag.String("name", "Admin", "Admin user display name")
	clientName := flag.String("client", "", "Tenant name; created if no tenant with this name exists (required)")
	flag.Parse()

	if strings.TrimSpace(*email) == "" || strings.TrimSpace(*password) == "" || strings.TrimSpace(*clientName) == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	// Tenant scoping is keyed off the request context; this tool runs outside
	// a request, so bypass it for the lookups below.
	ctx = appctx.Set(ctx, appctx.ContextKeySkipTenantScope, true)

	var client models.Client
	err := db.WithContext(ctx).Where("name = ?", strings.TrimSpace(*clientName)).First(&client).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup client: %v\n", err)
			os.Exit(1)
		}
		created, err := models.CreateClient(ctx, &models.NewClient{
			Name:  strings.TrimSpace(*clientName),
			Email: strings.TrimSpace(*email),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create client: %v\n", err)
			os.Exit(1)
		}
		client = *created
		fmt.Printf("Created client %q (id=%s)\n", client.Name, client.ID)
	}
	clientId := client.ID.String()
	ctx = utils.SetClientIdInContext(ctx, clientId)

	var existing models.User
	err = db.WithContext(ctx).Where("email = ?", strings.TrimSpace(*email)).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		user, err := models.CreateUser(ctx, clientId, &models.NewUser{
			Name:     strings.TrimSpace(*name),
			Email:    strings.TrimSpace(*email),
			Password: *password,
			Role:     models.RoleAdmin,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin user: email=%q (id=%d, role=%s)\n", user.Email, user.ID, user.Role)
		return
	}

	// User exists: reset password and ensure the admin role.
	hashed, err := utils.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	err = db.WithContext(ctx).Model(&models.User{}).Where("id = ?", existing.ID).Updates(map[string]any{
		"password_hash": hashed,
		"role":          models.RoleAdmin,
		"is_active":     true,
	}).Error
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Updated admin user: email=%q (id=%d, role=%s)\n", existing.Email, existing.ID, models.RoleAdmin)
}
