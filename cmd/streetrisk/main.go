package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/marais/streetrisk/internal/api"
	"github.com/marais/streetrisk/internal/loader"
	"github.com/marais/streetrisk/internal/model"
	"github.com/marais/streetrisk/internal/newsfeed"
	"github.com/marais/streetrisk/internal/risk"
	"github.com/marais/streetrisk/internal/store"
)

type cli struct {
	EnvFile kong.ConfigFlag `name:"env-file" help:"Optional .env file to load." type:"existingfile"`

	DB        string `env:"STREETRISK_DB" default:"data/streetrisk.db" help:"Path to the SQLite database."`
	Port      string `env:"PORT" default:"8080" help:"HTTP listen port."`
	ModelPath string `env:"MODEL_PATH" default:"data/model.json" help:"Path to the trained model artifact."`
	APIKey    string `env:"WORKER_API_KEY" help:"Shared secret for write endpoints."`

	Resolution       int    `env:"H3_RESOLUTION" default:"8" help:"H3 resolution for spatial indexing."`
	UseProbabilities bool   `env:"USE_PROBABILITIES" help:"Score the historical layer from class probabilities."`
	FastByDefault    bool   `env:"FAST_MODE" help:"Skip live layers unless a request opts in."`
	Overpass         string `env:"OVERPASS_ENDPOINT" default:"https://overpass-api.de/api/interpreter" help:"Overpass API endpoint."`
	POIRadius        float64 `env:"POI_RADIUS_M" default:"500" help:"POI probe radius in meters."`

	GNewsAPIKey string `env:"GNEWS_API_KEY" help:"GNews API key; news ingestion is disabled without it."`
	GNewsQuery  string `env:"GNEWS_QUERY" default:"Bengaluru crime" help:"GNews search query."`
	NoPoll      bool   `help:"Disable the news worker (server only, for local dev)."`

	LoadCSV string `name:"load-csv" help:"Load historical crimes from a CSV path or ftp:// URL, then exit."`
	Once    bool   `help:"Run one news ingestion cycle and exit."`
}

func main() {
	var flags cli
	kong.Parse(&flags,
		kong.Name("streetrisk"),
		kong.Description("Street-level crime risk assessment service."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	db, err := sql.Open("sqlite", flags.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.LoadCSV != "" {
		loaded, skipped, err := loader.Load(ctx, st, flags.LoadCSV)
		if err != nil {
			log.Fatalf("load csv: %v", err)
		}
		log.Printf("loaded %d crime events (%d rows skipped)", loaded, skipped)
		return
	}

	artifact, err := model.Load(flags.ModelPath)
	if err != nil {
		log.Fatalf("load model artifact %s: %v", flags.ModelPath, err)
	}
	if artifact.H3Resolution != flags.Resolution {
		log.Fatalf("model artifact trained at resolution %d, service configured for %d",
			artifact.H3Resolution, flags.Resolution)
	}
	ref := model.NewRef(artifact)
	log.Printf("model loaded from %s (trained %s)", flags.ModelPath, artifact.TrainedAt)

	historical := risk.NewHistorical(ref, flags.UseProbabilities)
	environment := risk.NewEnvironment(flags.Overpass, flags.POIRadius, risk.DefaultOverpassTimeout)
	contextual := risk.NewContext(st)

	aggregator, err := risk.NewAggregator(historical, environment, contextual, risk.DefaultWeights, flags.Resolution)
	if err != nil {
		log.Fatalf("aggregator: %v", err)
	}

	var worker *newsfeed.Worker
	if flags.GNewsAPIKey == "" {
		log.Println("news ingestion disabled: GNEWS_API_KEY not set")
	} else {
		feed := newsfeed.NewGNewsClient(flags.GNewsAPIKey, flags.GNewsQuery, "en", "in")
		worker = newsfeed.NewWorker(st, feed, newsfeed.NewGeocoder("streetrisk/1.0"), newsfeed.NewBengaluruGazetteer())
	}

	if flags.Once {
		if worker == nil {
			log.Fatal("--once requires GNEWS_API_KEY")
		}
		if err := worker.RunOnce(ctx); err != nil {
			log.Fatalf("ingest: %v", err)
		}
		return
	}

	if worker != nil && !flags.NoPoll {
		go worker.Run(ctx)
	}

	server := api.NewServer(st, aggregator, ref, api.Config{
		Port:          flags.Port,
		APIKey:        flags.APIKey,
		ModelPath:     flags.ModelPath,
		FastByDefault: flags.FastByDefault,
	})

	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
	log.Println("shutdown complete")
}
