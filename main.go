package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	config "github.com/rider9600/felicity-event-management-sub001/config"
	middleware "github.com/rider9600/felicity-event-management-sub001/middleware"
	routes "github.com/rider9600/felicity-event-management-sub001/routes"
	services "github.com/rider9600/felicity-event-management-sub001/services"
	"github.com/rider9600/felicity-event-management-sub001/store"
	utils "github.com/rider9600/felicity-event-management-sub001/utils"
)

func main() {
	defer logger.Init("felicity", true, false, os.Stdout).Close()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db := cfg.MongoClient.Database(cfg.DBName)

	st := store.NewMongoStore(db)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := st.EnsureIndexes(ctx); err != nil {
			cancel()
			log.Fatalf("ensure indexes: %v", err)
		}
		cancel()
	}

	notifier := services.NewNotifier(st, 256)
	svc := services.NewService(st, utils.EncodeQR, notifier.Emit)
	revoker := middleware.NewMongoRevoker(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go notifier.Run(ctx)

	// Periodic lifecycle sweep: publish -> ongoing -> completed promotions and
	// deadline closures happen here; reads only recompute display status.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				sctx, scancel := context.WithTimeout(ctx, 30*time.Second)
				if err := svc.Sweep(sctx, now); err != nil {
					logger.Errorf("lifecycle sweep: %v", err)
				}
				scancel()
			}
		}
	}()

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "If-None-Match"},
		ExposeHeaders: []string{"ETag", "Last-Modified", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}))

	routes.SetupRoutes(r, cfg, st, svc, revoker)

	logger.Infof("listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
