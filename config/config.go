package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all the configuration for the application.
type Config struct {
	BotToken       string
	DataDir        string
	DatabasePath   string // empty means in-memory state only
	FeedbackChatID int64  // 0 means the /feedback command is disabled
	Debug          bool
}

// Load reads an optional .env file and then the environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, working without it")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		return nil, errors.New("BOT_TOKEN environment variable is required")
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	dbPath, dbPathSet := os.LookupEnv("DB_PATH")
	if !dbPathSet {
		dbPath = "./data/quizbot.db"
	}

	var feedbackChatID int64
	if raw := os.Getenv("FEEDBACK_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.New("FEEDBACK_CHAT_ID must be a numeric chat id")
		}
		feedbackChatID = id
	}

	return &Config{
		BotToken:       botToken,
		DataDir:        dataDir,
		DatabasePath:   dbPath,
		FeedbackChatID: feedbackChatID,
		Debug:          os.Getenv("DEBUG") == "true",
	}, nil
}

// LogLevel maps the LOG_LEVEL variable onto a logrus level, defaulting to
// info.
func LogLevel() logrus.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
