package main

import (
	"github.com/sirupsen/logrus"

	"github.com/korjavin/padezbot/bot"
	"github.com/korjavin/padezbot/config"
	"github.com/korjavin/padezbot/database"
	"github.com/korjavin/padezbot/models"
	"github.com/korjavin/padezbot/quiz"
	"github.com/korjavin/padezbot/store"
)

func main() {
	logrus.SetLevel(config.LogLevel())

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	questions, err := models.LoadDirectory(cfg.DataDir)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load question corpus")
	}
	logrus.WithField("count", len(questions)).Info("Loaded questions")

	var source quiz.QuestionSource
	var sessions store.SessionStore

	if cfg.DatabasePath != "" {
		db, err := database.New(cfg.DatabasePath)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to open database")
		}
		defer db.Close()

		if _, _, err := db.ImportQuestions(questions); err != nil {
			logrus.WithError(err).Fatal("Failed to import questions")
		}
		source = db
		sessions = db
	} else {
		logrus.Warn("DB_PATH is empty, running with in-memory state only")
		source = quiz.NewMemorySource(questions)
		sessions = store.NewMemoryStore()
	}

	b, err := bot.New(cfg, source, sessions)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize bot")
	}

	logrus.Info("Bot initialized successfully")
	b.Start()
}
