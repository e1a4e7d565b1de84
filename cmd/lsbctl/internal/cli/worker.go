package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lsbgear/clock"
	"lsbgear/db"
	"lsbgear/interaction"
	"lsbgear/notify"
	"lsbgear/quota"
	"lsbgear/reconcile"
	"lsbgear/reminder"
	"lsbgear/reservation"
	"lsbgear/scheduler"
	"lsbgear/waitlist"
	"lsbgear/wizard"
	"lsbgear/worker"
)

// WorkerCmd runs the scheduler loop without the HTTP server -- a worker-
// only process for deployments that split the dashboard and the
// background job runner across separate containers.
func WorkerCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the background job scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn := db.Connect(dsn())
			store := db.NewStore(conn)
			clk := clock.Real{}
			sink := notify.NewLogSink()
			notifier := notify.New(sink, store, clk)
			engine := reservation.New(store, quota.NewGuard())
			reconciler := reconcile.New(store, sink, clk)
			reminders := reminder.New(store)
			waitlistMgr := waitlist.New(store, notifier, clk)
			wizardRegistry := wizard.New()

			router := &interaction.Router{
				Store: store, Engine: engine, Reminders: reminders, Reconcile: reconciler,
				Waitlist: waitlistMgr, Wizard: wizardRegistry, Clock: clk,
				IsBot: func(userID int64) bool { return false },
			}

			sched := scheduler.New(store)
			worker.Register(sched, worker.Deps{
				Store: store, Router: router, Notifier: notifier, Engine: engine,
				Reconcile: reconciler, Waitlist: waitlistMgr, Wizard: wizardRegistry, Clock: clk,
			})

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := worker.SeedSystemJobs(ctx, store, clk.NowUTC()); err != nil {
				return err
			}

			if once {
				fmt.Println(color.CyanString("worker: running a single tick"))
				return sched.Tick(ctx)
			}

			go reconciler.Run(ctx)
			fmt.Println(color.CyanString("worker: running until interrupted"))
			sched.Run(ctx)
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single scheduler tick and exit")
	return cmd
}
