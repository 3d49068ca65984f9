package models

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// LoadDirectory reads every YAML task-group file in dir and returns the
// flattened question list with content-hash ids assigned. Unreadable files
// are logged and skipped so a single broken file doesn't take the bot down.
func LoadDirectory(dir string) ([]Question, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", dir, err)
	}

	var questions []Question
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		group, err := loadTaskGroup(path)
		if err != nil {
			logrus.WithField("file", path).WithError(err).Error("Skipping corpus file")
			continue
		}
		questions = append(questions, group.Tasks...)
	}

	for i := range questions {
		questions[i].Hash = ContentHash(&questions[i])
		questions[i].ID = questions[i].Hash
		questions[i].Active = true
	}

	return questions, nil
}

func loadTaskGroup(path string) (*TaskGroup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var group TaskGroup
	if err := yaml.Unmarshal(data, &group); err != nil {
		return nil, fmt.Errorf("failed to parse task group: %w", err)
	}
	return &group, nil
}
