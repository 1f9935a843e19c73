package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prepside/gmat-backend/internal/config"
	"github.com/prepside/gmat-backend/internal/database"
	"github.com/prepside/gmat-backend/internal/logger"
	"github.com/prepside/gmat-backend/internal/model"
	"github.com/prepside/gmat-backend/internal/repository"
)

// seedQuestion mirrors the JSON export format of the question bank.
type seedQuestion struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	QuestionType  string   `json:"question_type"`
	Passage       string   `json:"passage"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
	Category      string   `json:"category"`
}

func main() {
	var file string
	flag.StringVar(&file, "file", "questions.json", "Path to the question bank JSON file")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	questionRepo := repository.NewQuestionRepository(pool)

	raw, err := os.ReadFile(file)
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Failed to read question file")
	}

	var seeds []seedQuestion
	if err := json.Unmarshal(raw, &seeds); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse question file")
	}

	fmt.Printf("=== Seeding %d Questions ===\n", len(seeds))

	created := 0
	for i, s := range seeds {
		if s.Text == "" || s.CorrectAnswer == "" || len(s.Options) < 2 {
			log.Warn().Int("index", i).Msg("Skipping incomplete question")
			continue
		}

		q := &model.Question{
			Text:          s.Text,
			Options:       s.Options,
			QuestionType:  model.QuestionType(s.QuestionType),
			Passage:       s.Passage,
			CorrectAnswer: s.CorrectAnswer,
			Explanation:   s.Explanation,
			Difficulty:    s.Difficulty,
			Category:      s.Category,
		}
		if err := questionRepo.Create(ctx, q); err != nil {
			log.Error().Err(err).Int("index", i).Msg("Failed to insert question")
			continue
		}
		created++
	}

	fmt.Printf("Done. Inserted %d/%d questions.\n", created, len(seeds))
}
