//cmd/seeder/main.go
package main

import (
    "fmt"
    "io/ioutil"
    "log"

    "github.com/joho/godotenv"
    _ "github.com/lib/pq"

    "github.com/driftmailhq/driftmail-backend/internal/config"
    "github.com/driftmailhq/driftmail-backend/internal/db"
    "github.com/driftmailhq/driftmail-backend/internal/model"
    "github.com/driftmailhq/driftmail-backend/internal/repository"
)

func main() {
    _ = godotenv.Load()
    cfg := config.Load()

    conn, err := db.Open(cfg.DatabaseURL)
    if err != nil {
        log.Fatal(err)
    }
    defer conn.Close()

    if err := db.RunMigrations(conn); err != nil {
        log.Fatalf("failed to run migrations: %v", err)
    }

    // Tenants come first, everything else references them.
    tenantRepo := &repository.TenantRepository{DB: conn}
    for _, name := range []string{"driftmail-dev", "acme-corp"} {
        t := model.Tenant{Name: name}
        if err := tenantRepo.Create(&t); err != nil {
            log.Fatalf("failed to seed tenant %s: %v", name, err)
        }
        fmt.Printf("Seeded tenant: %s (id %d)\n", t.Name, t.ID)
    }

    seedFiles := []string{
        "seed/recipients.sql",
        "seed/templates.sql",
        "seed/sender_profiles.sql",
        "seed/jobs.sql",
    }

    for _, file := range seedFiles {
        content, err := ioutil.ReadFile(file)
        if err != nil {
            log.Fatalf("failed to read %s: %v", file, err)
        }

        _, err = conn.Exec(string(content))
        if err != nil {
            log.Fatalf("failed to execute %s: %v", file, err)
        }
        fmt.Printf("Seeded: %s\n", file)
    }

    // Credentials go through the repository so secrets are sealed with the
    // configured encryption key instead of landing in plaintext.
    credRepo := repository.NewCredentialRepository(conn, cfg.CredentialEncryptionKey)
    demoCreds := []model.Credential{
        {TenantID: 1, Name: "primary-key", Secret: "demo-secret-1"},
        {TenantID: 1, Name: "backup-key", Secret: "demo-secret-2"},
        {TenantID: 1, Name: "overflow-key", Secret: "demo-secret-3"},
        {TenantID: 2, Name: "acme-key", Secret: "demo-secret-acme"},
    }
    for i := range demoCreds {
        if err := credRepo.Create(&demoCreds[i]); err != nil {
            log.Fatalf("failed to seed credential %s: %v", demoCreds[i].Name, err)
        }
        fmt.Printf("Seeded credential: %s (tenant %d)\n", demoCreds[i].Name, demoCreds[i].TenantID)
    }

    tenants, err := tenantRepo.List()
    if err != nil {
        log.Fatalf("failed to list tenants: %v", err)
    }
    fmt.Printf("Database seeding completed successfully! (%d tenants)\n", len(tenants))
}
