package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
)

type ingredientRecord struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

func main() {
	ingredientsFile := flag.String("file", "data/ingredients.json", "JSON list of {name, measurement_unit}")
	tagsFile := flag.String("tags", "data/tags.json", "JSON list of {name, color, slug}; empty to skip")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(config.IsProduction(), cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.RunMigrations(db, cfg.MigrationsDir); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	ctx := context.Background()

	var records []ingredientRecord
	if err := readJSON(*ingredientsFile, &records); err != nil {
		logger.Fatal("failed to read ingredients", zap.String("file", *ingredientsFile), zap.Error(err))
	}
	items := make([]models.Ingredient, 0, len(records))
	for _, r := range records {
		items = append(items, models.Ingredient{Name: r.Name, MeasurementUnit: r.MeasurementUnit})
	}

	n, err := service.NewIngredientService(db).ImportIngredients(ctx, items)
	switch {
	case errors.Is(err, service.ErrAlreadyImported):
		logger.Info("ingredients already loaded, skipping")
	case err != nil:
		logger.Fatal("failed to import ingredients", zap.Error(err))
	default:
		logger.Info("imported ingredients", zap.Int("count", n))
	}

	if *tagsFile == "" {
		return
	}
	var tags []service.TagInput
	if err := readJSON(*tagsFile, &tags); err != nil {
		logger.Fatal("failed to read tags", zap.String("file", *tagsFile), zap.Error(err))
	}
	tagService := service.NewTagService(db)
	created := 0
	for i := range tags {
		if _, err := tagService.CreateTag(ctx, &tags[i]); err != nil {
			logger.Warn("skipping tag", zap.String("name", tags[i].Name), zap.Error(err))
			continue
		}
		created++
	}
	logger.Info("imported tags", zap.Int("count", created), zap.Int("total", len(tags)))
}

func readJSON(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
