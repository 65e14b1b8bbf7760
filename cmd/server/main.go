package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/dbdint/agency-api/internal/config"
	"github.com/dbdint/agency-api/internal/database"
	"github.com/dbdint/agency-api/internal/dispatch"
	"github.com/dbdint/agency-api/internal/handler"
	"github.com/dbdint/agency-api/internal/mailer"
	"github.com/dbdint/agency-api/internal/queue"
	"github.com/dbdint/agency-api/internal/repository"
	"github.com/dbdint/agency-api/internal/router"
	"github.com/dbdint/agency-api/internal/token"
)

// quoteSweepInterval is how often SENT quotes past their validity date
// are expired.
const quoteSweepInterval = time.Hour

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting, caching and counters disabled")
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	assignments := repository.NewAssignmentRepo(db)
	payments := repository.NewPaymentRepo(db)
	quotes := repository.NewQuoteRepo(db)
	catalog := repository.NewCatalogRepo(db)
	audit := repository.NewAuditRepo(db)
	notifications := repository.NewNotificationRepo(db)

	sender := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	mail := mailer.New(sender, cfg.FromEmail, cfg.OrgName, cfg.MailDomain, cfg.BaseURL, cfg.DisplayZone)
	signer := token.NewSigner(cfg.LinkSecret)
	dispatcher := dispatch.New(db, assignments, payments, users, audit, notifications,
		mail, signer, cfg.BaseURL)

	// Queued mail (welcome and quote emails) drains in the background;
	// the consumer reconnects on its own if the broker drops.
	go queue.StartMailConsumer(cfg.RabbitURL, mail, quotes)
	go sweepStaleQuotes(quotes)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, rdb, router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, users, sessions),
		Browse:      handler.NewBrowseHandler(catalog),
		Quote:       handler.NewQuoteHandler(quotes, users, catalog, assignments, audit, cfg.DisplayZone),
		Link:        handler.NewLinkHandler(assignments, audit, signer, dispatcher, cfg.DisplayZone),
		Assignment:  handler.NewStaffAssignmentHandler(assignments, users, catalog, audit, dispatcher, cfg.DisplayZone),
		Payment:     handler.NewStaffPaymentHandler(payments, assignments, audit, cfg.DisplayZone),
		Interpreter: handler.NewInterpreterHandler(assignments, notifications, users, rdb, cfg.DisplayZone),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

func sweepStaleQuotes(quotes *repository.QuoteRepo) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := quotes.ExpireStale(ctx, time.Now())
		cancel()
		if err != nil {
			log.Printf("quote sweep: %v", err)
		} else if n > 0 {
			log.Printf("quote sweep: expired %d quotes", n)
		}
		time.Sleep(quoteSweepInterval)
	}
}
