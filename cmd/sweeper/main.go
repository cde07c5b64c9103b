// The sweeper runs the periodic maintenance passes once and exits:
// payment expiration, usage auto-start, usage auto-complete and the
// usage-log backfill.  Schedule it from cron; every pass is idempotent.
package main

import (
    "context"
    "log"
    "time"

    "github.com/joho/godotenv"

    "github.com/iliyamo/facility-reservation/internal/config"
    "github.com/iliyamo/facility-reservation/internal/database"
    "github.com/iliyamo/facility-reservation/internal/repository"
    "github.com/iliyamo/facility-reservation/internal/service"
)

func main() {
    _ = godotenv.Load()
    cfg := config.LoadSweeper()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    users := repository.NewUserRepo(db)
    facilities := repository.NewFacilityRepo(db)
    reservations := repository.NewReservationRepo(db)
    waitlist := repository.NewWaitlistRepo(db)
    usageLogs := repository.NewUsageLogRepo(db)
    auditLogs := repository.NewAuditLogRepo(db)
    outbox := repository.NewOutboxRepo(db)

    payments := service.NewPaymentManager(db, reservations, facilities, waitlist, auditLogs, users, outbox)
    usage := service.NewUsageManager(db, reservations, usageLogs, auditLogs)

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
    defer cancel()

    expired, err := payments.CheckExpiredPayments(ctx)
    if err != nil {
        log.Fatalf("expire payments: %v", err)
    }
    log.Printf("expired %d overdue payments", expired)

    started, err := usage.AutoStartUsage(ctx)
    if err != nil {
        log.Fatalf("auto-start usage: %v", err)
    }
    log.Printf("auto-started %d reservations", started)

    completed, err := usage.AutoCompleteExpiredUsage(ctx)
    if err != nil {
        log.Fatalf("auto-complete usage: %v", err)
    }
    log.Printf("auto-completed %d reservations", completed)

    backfilled, err := usage.CreateUsageLogsForConfirmedReservations(ctx)
    if err != nil {
        log.Fatalf("backfill usage logs: %v", err)
    }
    log.Printf("backfilled %d usage log rows", backfilled)
}
