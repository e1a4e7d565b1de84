package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lsbgear/app"
	"lsbgear/clock"
	"lsbgear/config"
	"lsbgear/interaction"
	"lsbgear/notify"
	"lsbgear/quota"
	"lsbgear/reconcile"
	"lsbgear/reminder"
	"lsbgear/reservation"
	"lsbgear/routes"
	"lsbgear/scheduler"
	"lsbgear/waitlist"
	"lsbgear/wizard"
	"lsbgear/worker"
)

func main() {
	config.LoadEnv()

	application := app.MustNew()
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.BootstrapFirstAdmin(ctx, application.Config, application.AdminRepo)

	clk := clock.Real{}
	sink := notify.NewLogSink()
	notifier := notify.New(sink, application.Store, clk)
	engine := reservation.New(application.Store, quota.NewGuard())
	reconciler := reconcile.New(application.Store, sink, clk)
	reminders := reminder.New(application.Store)
	waitlistMgr := waitlist.New(application.Store, notifier, clk)
	wizardRegistry := wizard.New()

	router := &interaction.Router{
		Store:     application.Store,
		Engine:    engine,
		Reminders: reminders,
		Reconcile: reconciler,
		Waitlist:  waitlistMgr,
		Wizard:    wizardRegistry,
		Clock:     clk,
		// No chat gateway is wired in (see notify.LogSink) so there are no
		// real bot accounts to distinguish; every transfer target is
		// treated as human.
		IsBot: func(userID int64) bool { return false },
	}

	sched := scheduler.New(application.Store).WithTick(30 * time.Second)
	worker.Register(sched, worker.Deps{
		Store:     application.Store,
		Router:    router,
		Notifier:  notifier,
		Engine:    engine,
		Reconcile: reconciler,
		Waitlist:  waitlistMgr,
		Wizard:    wizardRegistry,
		Clock:     clk,
	})
	if err := worker.SeedSystemJobs(ctx, application.Store, clk.NowUTC()); err != nil {
		log.Printf("worker: seeding system jobs failed: %v", err)
	}

	go reconciler.Run(ctx)
	go sched.Run(ctx)

	r := application.Router
	r.GET("/healthz", func(c *app.Ctx) { c.JSON(200, app.H{"ok": true}) })
	routes.RegisterRoutes(r, application)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}
	log.Printf("listening on :%s", port)
	_ = r.Run(":" + port)
}
