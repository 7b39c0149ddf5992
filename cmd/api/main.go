package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskdeck.dev/internal/audit"
	"taskdeck.dev/internal/auth"
	"taskdeck.dev/internal/authz"
	"taskdeck.dev/internal/directory"
	"taskdeck.dev/internal/httpapi"
	"taskdeck.dev/internal/obs"
	"taskdeck.dev/internal/store/pg"
	"taskdeck.dev/internal/task"
)

var version = "0.3.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("TASKDECK_COMMIT"))

	var (
		dirStore   directory.Store
		taskStore  task.Store
		auditStore audit.Store
		probe      httpapi.ReadyProbe
		pgStore    *pg.Store
	)
	if dsn := os.Getenv("TASKDECK_PG_DSN"); dsn != "" {
		var err error
		pgStore, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		dirStore = pgStore
		taskStore = pgStore.Tasks()
		auditStore = pgStore.Audit()
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		// In-memory stores for local development without Postgres.
		dirStore = directory.NewInMemory()
		taskStore = task.NewInMemory()
		auditStore = audit.NewInMemory()
	}

	resolver, err := authz.NewResolver(directory.AuthzDirectory(dirStore))
	if err != nil {
		log.Fatalf("resolver: %v", err)
	}
	gate, err := authz.NewGate(authz.DefaultCapabilityTable(), resolver)
	if err != nil {
		log.Fatalf("gate: %v", err)
	}
	recorder, err := audit.NewRecorder(auditStore)
	if err != nil {
		log.Fatalf("audit recorder: %v", err)
	}
	dirSvc, err := directory.NewService(dirStore, gate, recorder)
	if err != nil {
		log.Fatalf("directory service: %v", err)
	}
	taskSvc, err := task.NewService(taskStore, gate, recorder)
	if err != nil {
		log.Fatalf("task service: %v", err)
	}
	authSvc, err := auth.NewService(dirSvc)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(probe, version, authSvc, dirSvc, taskSvc, gate, recorder)

	addr := os.Getenv("TASKDECK_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting taskdeck-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
