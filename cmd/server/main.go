package main

import (
    "context"
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/facility-reservation/internal/config"
    "github.com/iliyamo/facility-reservation/internal/database"
    "github.com/iliyamo/facility-reservation/internal/handler"
    "github.com/iliyamo/facility-reservation/internal/notify"
    "github.com/iliyamo/facility-reservation/internal/queue"
    "github.com/iliyamo/facility-reservation/internal/repository"
    "github.com/iliyamo/facility-reservation/internal/router"
    "github.com/iliyamo/facility-reservation/internal/service"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis is optional: a nil client disables rate limiting and caching.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable; rate limiting and response caching disabled")
    }

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    facilities := repository.NewFacilityRepo(db)
    reservations := repository.NewReservationRepo(db)
    waitlist := repository.NewWaitlistRepo(db)
    usageLogs := repository.NewUsageLogRepo(db)
    auditLogs := repository.NewAuditLogRepo(db)
    outbox := repository.NewOutboxRepo(db)

    payments := service.NewPaymentManager(db, reservations, facilities, waitlist, auditLogs, users, outbox)
    bookings := service.NewReservationManager(db, reservations, facilities, auditLogs, users, outbox)
    usage := service.NewUsageManager(db, reservations, usageLogs, auditLogs)

    // Outbox worker publishes committed notifications to RabbitMQ; the
    // consumer records deliveries.  Both run for the lifetime of the
    // process.
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    go notify.NewWorker(outbox, cfg.OutboxPoll).Run(ctx)
    go func() {
        if err := queue.StartNotificationConsumer(); err != nil {
            log.Printf("notification consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    e.HideBanner = true
    router.Register(e, router.Handlers{
        Auth:        handler.NewAuthHandler(cfg, users, tokens, outbox),
        Public:      handler.NewPublicHandler(facilities),
        Reservation: handler.NewReservationHandler(payments, bookings),
        Admin:       handler.NewAdminHandler(payments, bookings, usage),
    }, cfg.JWTSecret, rdb)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
