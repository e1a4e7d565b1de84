// app/bootstrap.go
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"lsbgear/db"
)

func BootstrapFirstAdmin(ctx context.Context, cfg Config, repo *db.AdminRepo) {
	fmt.Println("Checking if admin user exists...")
	if cfg.BootstrapEmail == "" {
		return
	}
	n, _ := repo.CountAdmins(ctx)
	if n > 0 {
		return // an admin already exists, skip
	}

	// generates a one-time invite
	buf := make([]byte, 16)
	rand.Read(buf)
	token := hex.EncodeToString(buf)

	// CreateInvite(email, token, expiresAt, createdBy)
	if _, err := repo.CreateInvite(ctx, cfg.BootstrapEmail, token, time.Now().Add(24*time.Hour), "bootstrap"); err != nil {
		log.Printf("bootstrap invite failed: %v", err)
		return
	}

	// print the invite link so an operator can hand it out directly
	link := fmt.Sprintf("%s/login?inviteToken=%s", cfg.WebOrigin, token)
	log.Printf("[BOOTSTRAP] No admin found, created an admin invite for %s", cfg.BootstrapEmail)
	log.Printf("[BOOTSTRAP] Open this URL to register the first admin: %s", link)
}
