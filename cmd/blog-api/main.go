// blog-api serves the blog backend: identities, posts, comments and
// their media assets.
//
// It reads configuration from config.json in the working directory (if
// present) and the environment, connects to PostgreSQL (or keeps records
// in memory with storage "memory"), and starts the HTTP server.
//
// Usage:
//
//	./blog-api                          # reads ./config.json and ./.env
//	STORAGE=memory MEDIA_BACKEND=local PUBLIC_BASE_URL=http://localhost:3000 ./blog-api
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/account"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/auth"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/config"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/database"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/events"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/graph"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/media"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/memstore"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/post"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/server"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("blog-api starting...")

	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (listen=%s storage=%s auth=%s media=%s)",
		cfg.ListenAddr, cfg.Storage, cfg.AuthMode, cfg.MediaBackend)

	// Root context cancelled on SIGINT or SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received %v, shutting down...", sig)
		cancel()
	}()

	// Record stores.
	var (
		accounts account.Repository
		posts    post.Repository
		sessions auth.SessionStore
		feed     events.Store
	)
	switch cfg.Storage {
	case config.StorageMemory:
		accounts = memstore.NewAccounts()
		posts = memstore.NewPosts()
		sessions = memstore.NewSessions()
		feed = memstore.NewEvents()
		log.Println("Using in-memory storage; records are lost on exit")
	default:
		db, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		log.Println("Database connected, schema bootstrapped")

		accounts = account.NewStore(db)
		posts = post.NewStore(db)
		sessions = auth.NewPGSessionStore(db)
		feed = events.NewPersister(db.Pool)
	}

	// Credential variant.
	var strategy auth.Strategy
	switch cfg.AuthMode {
	case config.AuthModeSession:
		strategy = auth.NewSessionStrategy(sessions, cfg.SessionSecret, cfg.CredentialTTL.Duration)
	default:
		strategy = auth.NewJWTStrategy(cfg.JWTSecret, "blog-api", cfg.CredentialTTL.Duration)
	}
	creds := auth.NewManager(cfg.BcryptCost, strategy)

	// Remote media store.
	var (
		store    media.ObjectStore
		mediaDir string
	)
	switch cfg.MediaBackend {
	case config.MediaBackendLocal:
		local, err := media.NewLocalStore(cfg.LocalMediaDir, strings.TrimRight(cfg.PublicBaseURL, "/")+"/media")
		if err != nil {
			log.Fatalf("Failed to open local media store: %v", err)
		}
		store, mediaDir = local, local.Dir()
	default:
		s3Store, err := media.NewS3Store(ctx, media.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			log.Fatalf("Failed to create S3 client: %v", err)
		}
		store = s3Store
	}
	mediaMgr, err := media.NewManager(store, cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		log.Fatalf("Failed to prepare upload dir: %v", err)
	}

	evts := events.NewManager(feed)
	defer evts.Shutdown()

	srv := server.New(server.Deps{
		Config:      cfg,
		Credentials: creds,
		Accounts:    accounts,
		Posts:       posts,
		Media:       mediaMgr,
		Graph:       graph.New(accounts, posts, mediaMgr, evts),
		Events:      evts,
		MediaDir:    mediaDir,
	})

	// Start the HTTP server (blocks until context is cancelled).
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("blog-api stopped")
}
