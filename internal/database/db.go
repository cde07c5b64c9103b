package database

import (
    "context"
    "database/sql"
    "time"

    "github.com/go-sql-driver/mysql"
)

// Pool sizing for the reservation workload: short transactions holding
// row locks, so a modest pool drains quickly.
const (
    maxOpenConns    = 20
    maxIdleConns    = 10
    connMaxLifetime = 30 * time.Minute
)

// Open connects to MySQL and verifies the connection.  All DATETIME
// columns are read as time.Time in UTC; every timestamp in the schema is
// stored in UTC, so the location must never vary per connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
    cfg := mysql.NewConfig()
    cfg.User = user
    cfg.Passwd = pass
    cfg.Net = "tcp"
    cfg.Addr = host + ":" + port
    cfg.DBName = name
    cfg.ParseTime = true
    cfg.Loc = time.UTC
    cfg.Params = map[string]string{"charset": "utf8mb4"}

    db, err := sql.Open("mysql", cfg.FormatDSN())
    if err != nil {
        return nil, err
    }
    db.SetMaxOpenConns(maxOpenConns)
    db.SetMaxIdleConns(maxIdleConns)
    db.SetConnMaxLifetime(connMaxLifetime)

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        db.Close()
        return nil, err
    }
    return db, nil
}
