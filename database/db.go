// Package database is the sqlite-backed implementation of the session store
// and the question corpus. It is the durable counterpart of the in-memory
// implementations; a single *DB is safe for concurrent use.
package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/korjavin/padezbot/filter"
	"github.com/korjavin/padezbot/models"
)

// DB handles all database operations.
type DB struct {
	conn *sql.DB
}

// New opens the database and creates tables when missing.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Serialize access through a single connection: sqlite allows one writer
	// and the queue pop relies on transaction isolation.
	conn.SetMaxOpenConns(1)

	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	if err = createTables(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func createTables(conn *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS questions (
			hash INTEGER PRIMARY KEY,
			active INTEGER NOT NULL DEFAULT 1,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_state (
			chat_id INTEGER PRIMARY KEY,
			filter TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_queue (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id INTEGER NOT NULL,
			question_id INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queue_chat ON conversation_queue (chat_id)`,
		`CREATE TABLE IF NOT EXISTS user_info (
			uid INTEGER PRIMARY KEY,
			username TEXT,
			full_name TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			last_active_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_answer (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uid INTEGER NOT NULL,
			question_id INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			asked_at INTEGER NOT NULL,
			answered_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_answer_uid ON user_answer (uid, answered_at)`,
	}

	for _, stmt := range statements {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// ImportQuestions upserts the batch by content hash and deactivates every
// question missing from it. Deactivated questions stay resolvable by id so
// historical answer records keep their referent. The import is idempotent.
func (db *DB) ImportQuestions(questions []models.Question) (upserted, deactivated int64, err error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	hashes := make([]int64, 0, len(questions))
	for i := range questions {
		data, err := json.Marshal(&questions[i])
		if err != nil {
			return 0, 0, fmt.Errorf("failed to serialize question %s: %w", models.FormatID(questions[i].ID), err)
		}

		_, err = tx.Exec(
			`INSERT INTO questions (hash, active, data) VALUES (?, 1, ?)
			 ON CONFLICT (hash) DO UPDATE SET active = 1, data = excluded.data`,
			questions[i].Hash, string(data),
		)
		if err != nil {
			return 0, 0, err
		}
		hashes = append(hashes, questions[i].Hash)
	}

	placeholders := make([]string, len(hashes))
	args := make([]any, len(hashes))
	for i, h := range hashes {
		placeholders[i] = "?"
		args[i] = h
	}
	deactivateSQL := "UPDATE questions SET active = 0 WHERE active = 1"
	if len(hashes) > 0 {
		deactivateSQL += " AND hash NOT IN (" + strings.Join(placeholders, ",") + ")"
	}
	result, err := tx.Exec(deactivateSQL, args...)
	if err != nil {
		return 0, 0, err
	}
	deactivated, err = result.RowsAffected()
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}

	logrus.WithFields(logrus.Fields{
		"upserted":    len(questions),
		"deactivated": deactivated,
	}).Info("Imported questions")
	return int64(len(questions)), deactivated, nil
}

func (db *DB) activeQuestions() ([]models.Question, error) {
	rows, err := db.conn.Query("SELECT data FROM questions WHERE active = 1")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var q models.Question
		if err := json.Unmarshal([]byte(data), &q); err != nil {
			return nil, fmt.Errorf("failed to parse stored question: %w", err)
		}
		q.Active = true
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// QuestionIDs returns the ids of active questions matching the expression.
func (db *DB) QuestionIDs(expr filter.Expression) ([]int64, error) {
	questions, err := db.activeQuestions()
	if err != nil {
		return nil, err
	}

	var ids []int64
	for i := range questions {
		if filter.Matches(questions[i].Attributes, expr) {
			ids = append(ids, questions[i].ID)
		}
	}
	return ids, nil
}

// Question resolves a question by id, active or not. Returns nil when the id
// was never imported.
func (db *DB) Question(id int64) (*models.Question, error) {
	var data string
	var active int
	err := db.conn.QueryRow("SELECT data, active FROM questions WHERE hash = ?", id).Scan(&data, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var q models.Question
	if err := json.Unmarshal([]byte(data), &q); err != nil {
		return nil, fmt.Errorf("failed to parse stored question: %w", err)
	}
	q.Active = active == 1
	return &q, nil
}

// FilterInfo lists attribute names and values across active questions.
func (db *DB) FilterInfo() ([]filter.Info, error) {
	questions, err := db.activeQuestions()
	if err != nil {
		return nil, err
	}
	return filter.CollectInfo(questions), nil
}

// TouchUser upserts the user row and reports whether it is new.
func (db *DB) TouchUser(user models.UserInfo) (bool, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(
		"SELECT COUNT(*) FROM user_info WHERE uid = ?", user.UID,
	).Scan(&exists); err != nil {
		return false, err
	}

	now := time.Now().UnixMilli()
	if _, err := tx.Exec(
		`INSERT INTO user_info (uid, username, full_name, created_at, last_active_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (uid) DO UPDATE SET last_active_at = excluded.last_active_at`,
		user.UID, user.Username, user.FullName, now, now,
	); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	isNew := exists == 0
	if isNew {
		logrus.WithFields(logrus.Fields{"uid": user.UID, "username": user.Username}).Info("New user")
	}
	return isNew, nil
}

// GetState returns the conversation state, zero-valued for unknown chats.
func (db *DB) GetState(chatID int64) (models.ConversationState, error) {
	var state models.ConversationState
	err := db.conn.QueryRow(
		"SELECT filter FROM conversation_state WHERE chat_id = ?", chatID,
	).Scan(&state.Filter)
	if err == sql.ErrNoRows {
		return models.ConversationState{}, nil
	}
	return state, err
}

// UpdateState upserts the conversation state.
func (db *DB) UpdateState(chatID int64, state models.ConversationState) error {
	_, err := db.conn.Exec(
		`INSERT INTO conversation_state (chat_id, filter) VALUES (?, ?)
		 ON CONFLICT (chat_id) DO UPDATE SET filter = excluded.filter`,
		chatID, state.Filter,
	)
	return err
}

// ReplaceQueue swaps the pending queue for the conversation in one
// transaction.
func (db *DB) ReplaceQueue(chatID int64, questionIDs []int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM conversation_queue WHERE chat_id = ?", chatID); err != nil {
		return err
	}
	for _, id := range questionIDs {
		if _, err := tx.Exec(
			"INSERT INTO conversation_queue (chat_id, question_id) VALUES (?, ?)",
			chatID, id,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// TakeNextTask atomically pops one queued question id for the conversation.
func (db *DB) TakeNextTask(chatID int64) (int64, bool, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	var rowID, questionID int64
	err = tx.QueryRow(
		`SELECT id, question_id FROM conversation_queue
		 WHERE chat_id = ? ORDER BY id DESC LIMIT 1`,
		chatID,
	).Scan(&rowID, &questionID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	if _, err := tx.Exec("DELETE FROM conversation_queue WHERE id = ?", rowID); err != nil {
		return 0, false, err
	}
	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return questionID, true, nil
}

// RecordAnswer appends one graded interaction.
func (db *DB) RecordAnswer(record models.AnswerRecord) error {
	_, err := db.conn.Exec(
		`INSERT INTO user_answer (uid, question_id, correct, asked_at, answered_at)
		 VALUES (?, ?, ?, ?, ?)`,
		record.UID, record.QuestionID, record.Correct,
		record.AskedAt.UnixMilli(), record.AnsweredAt.UnixMilli(),
	)
	return err
}

// AnswerStat counts the user's answers within the trailing window.
func (db *DB) AnswerStat(uid int64, window time.Duration) (models.AnswerStat, error) {
	from := time.Now().Add(-window).UnixMilli()
	var stat models.AnswerStat
	err := db.conn.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(correct), 0) FROM user_answer
		 WHERE uid = ? AND answered_at >= ?`,
		uid, from,
	).Scan(&stat.Count, &stat.Correct)
	return stat, err
}
