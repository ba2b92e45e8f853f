package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/autoimport-pro/server/internal/agent/graph"
	"github.com/autoimport-pro/server/internal/agent/knowledge"
	"github.com/autoimport-pro/server/internal/agent/model"
	"github.com/autoimport-pro/server/internal/agent/repo"
	"github.com/autoimport-pro/server/internal/core"
	logx "github.com/autoimport-pro/server/pkg/logger"
	pkgredis "github.com/autoimport-pro/server/pkg/redis"
	pkgsqlite "github.com/autoimport-pro/server/pkg/sqlite"
)

const (
	storeSQLite = "sqlite"
	storeRedis  = "redis"
)

// AppConfig defines all configurable parameters for the sales agent demo,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis       pkgredis.Config
	Database    pkgsqlite.Config
	StoreDriver string `envconfig:"STORE_DRIVER" default:"sqlite"`

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Extraction    model.ExtractionModelConfig
	Response      model.ResponseModelConfig
	Prompt        model.ResponsePromptConfig
	Conversation  model.ConversationConfig
	Qualification model.QualificationConfig
	Resilience    model.ResilienceConfig
}

func main() {
	ctx := context.Background()
	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}
	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	db, err := envCfg.Database.New(ctx)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := repo.Migrate(ctx, db); err != nil {
		logx.Fatal().Err(err).Msg("Failed to migrate database")
	}

	catalog := repo.NewSQLiteCatalog(db)
	if _, err := repo.SeedIfEmpty(ctx, catalog, repo.SampleCars()); err != nil {
		logx.Fatal().Err(err).Msg("Failed to seed catalog")
	}

	var leads model.LeadRepository
	switch envCfg.StoreDriver {
	case storeRedis:
		rdb, err := envCfg.Redis.New(ctx)
		if err != nil {
			logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
		}
		defer rdb.Close()
		leads = repo.NewRedisLeadRepository(rdb, envCfg.Conversation.TTL)
		logx.Info().Msg("Leads stored in Redis")
	default:
		leads = repo.NewSQLiteLeadRepository(db)
		logx.Info().Str("path", envCfg.Database.Path).Msg("Leads stored in SQLite")
	}

	kb, err := knowledge.Default()
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to load knowledge base")
	}

	runner, err := graph.BuildResponseGraph(ctx, graph.Config{
		APIKey:          envCfg.APIKey,
		BaseURL:         envCfg.BaseURL,
		ExtractionModel: envCfg.Extraction,
		ResponseModel:   envCfg.Response,
		ResponsePrompt:  envCfg.Prompt,
		Conversation:    envCfg.Conversation,
		Qualification:   envCfg.Qualification,
		Resilience:      envCfg.Resilience,
		LeadRepo:        leads,
		Catalog:         catalog,
		Knowledge:       kb,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build graph")
	}

	testQueries := []struct {
		description string
		query       string
	}{
		{
			description: "Greeting and brand interest",
			query:       "Здравствуйте! Хочу привезти Toyota из Японии",
		},
		{
			description: "Budget and body type",
			query:       "Бюджет до 3.5 млн рублей, лучше кроссовер. Что есть в наличии?",
		},
		{
			description: "Contact details",
			query:       "Меня зовут Иван, телефон 8 916 123-45-67. Нужно срочно",
		},
	}

	sessionID := graph.NewSessionID()

	for i, test := range testQueries {
		fmt.Printf("\nTest %d: %s\n", i+1, test.description)
		fmt.Printf("Query: %q\n", test.query)

		outcome := runner.Invoke(ctx, model.QueryInput{
			SessionID: sessionID,
			Message:   test.query,
		})

		b, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			logx.Fatal().Err(err).Msg("Failed to encode outcome")
		}
		fmt.Printf("Outcome %d:\n%s\n", i+1, b)
		fmt.Println("--------------------------------------------------")

		// add slight delay between tests for readability
		time.Sleep(500 * time.Millisecond)
	}

	fmt.Println("All demo turns completed")
}
