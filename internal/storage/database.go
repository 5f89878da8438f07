package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cogchat/internal/models"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a conversation id is unknown
var ErrNotFound = errors.New("conversation not found")

// Conversation is a stored conversation row
type Conversation struct {
	ID        string
	Title     string
	Summary   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a stored message row
type Message struct {
	ConversationID string
	Role           models.Role
	Content        string
	CreatedAt      time.Time
	TokensUsed     *int
	Model          *string
}

// Database handles SQLite operations for conversations and messages
type Database struct {
	db  *sql.DB
	now func() time.Time
}

// NewDatabase opens the database at dbPath and creates missing tables.
// ":memory:" gives a private in-memory database.
func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// In-memory databases exist per connection.
	db.SetMaxOpenConns(1)

	database := &Database{db: db, now: time.Now}
	if err := database.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return database, nil
}

func (d *Database) createTables() error {
	conversationsTable := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		summary TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`

	messagesTable := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('system', 'user', 'assistant')),
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		tokens_used INTEGER,
		model TEXT,
		FOREIGN KEY (conversation_id) REFERENCES conversations (id) ON DELETE CASCADE
	);`

	indexTable := `
	CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC);`

	for _, query := range []string{"PRAGMA foreign_keys = ON;", conversationsTable, messagesTable, indexTable} {
		if _, err := d.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// CreateConversation stores a new conversation seeded with systemPrompt as
// its first message. An empty title becomes models.DefaultTitle.
func (d *Database) CreateConversation(ctx context.Context, title, systemPrompt string) (*Conversation, error) {
	if title == "" {
		title = models.DefaultTitle
	}
	now := d.now().UTC()
	conv := &Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, title, summary, created_at, updated_at)
		VALUES (?, ?, NULL, ?, ?)`,
		conv.ID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if systemPrompt != "" {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (conversation_id, role, content, created_at)
			VALUES (?, ?, ?, ?)`,
			conv.ID, models.RoleSystem, systemPrompt, now)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation loads one conversation without its messages
func (d *Database) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, title, summary, created_at, updated_at
		FROM conversations
		WHERE id = ?`, id)

	var conv Conversation
	err := row.Scan(&conv.ID, &conv.Title, &conv.Summary, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// RecentConversations returns up to limit conversations, most recently
// updated first.
func (d *Database) RecentConversations(ctx context.Context, limit int) ([]Conversation, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, title, summary, created_at, updated_at
		FROM conversations
		ORDER BY updated_at DESC, created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []Conversation{}
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.Summary, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// UpdateConversation changes the title and/or summary. Nil fields are left
// as they are.
func (d *Database) UpdateConversation(ctx context.Context, id string, title, summary *string) (*Conversation, error) {
	res, err := d.db.ExecContext(ctx, `
		UPDATE conversations
		SET title = COALESCE(?, title),
		    summary = COALESCE(?, summary),
		    updated_at = ?
		WHERE id = ?`,
		title, summary, d.now().UTC(), id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return d.GetConversation(ctx, id)
}

// AddMessage appends a message and bumps the conversation's updated_at
func (d *Database) AddMessage(ctx context.Context, msg Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = d.now().UTC()
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ? WHERE id = ?`,
		msg.CreatedAt, msg.ConversationID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, role, content, created_at, tokens_used, model)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt, msg.TokensUsed, msg.Model)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Messages returns the messages of a conversation in insertion order
func (d *Database) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT conversation_id, role, content, created_at, tokens_used, model
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt, &msg.TokensUsed, &msg.Model); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}
