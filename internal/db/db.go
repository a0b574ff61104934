// internal/db/db.go
package db

import (
    "database/sql"
    "fmt"
    "time"

    _ "github.com/lib/pq"
)

// Open connects to Postgres and verifies the connection with a ping.
func Open(databaseURL string) (*sql.DB, error) {
    conn, err := sql.Open("postgres", databaseURL)
    if err != nil {
        return nil, fmt.Errorf("open database: %w", err)
    }

    conn.SetMaxOpenConns(20)
    conn.SetMaxIdleConns(5)
    conn.SetConnMaxLifetime(30 * time.Minute)

    if err := conn.Ping(); err != nil {
        conn.Close()
        return nil, fmt.Errorf("ping database: %w", err)
    }
    return conn, nil
}
