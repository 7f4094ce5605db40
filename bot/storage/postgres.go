// Package storage persists finished orders, reservations, feedback and the chat log.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/restobot/bot/record"
)

const platformTelegram = "tg"

// Store is the complete persistence contract of the bot.
type Store interface {
	record.Sink
	record.MessageLogger
}

// Postgres writes records with sqlx on top of lib/pq.
type Postgres struct {
	db *sqlx.DB
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps an open connection.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

type orderRow struct {
	ID           uuid.UUID  `db:"id"`
	UserID       int64      `db:"user_id"`
	Username     string     `db:"tg_username"`
	Name         string     `db:"name"`
	Phone        string     `db:"phone"`
	OrderType    string     `db:"order_type"`
	Address      string     `db:"address"`
	Fast         bool       `db:"fast"`
	Date         *time.Time `db:"date"`
	Time         string     `db:"time"`
	Items        string     `db:"items"`
	Subtotal     int64      `db:"subtotal"`
	Fee          int64      `db:"fee"`
	Total        int64      `db:"total"`
	Comment      string     `db:"comment"`
	OperatorCall bool       `db:"operator_call"`
	Payment      string     `db:"payment"`
	Platform     string     `db:"platform"`
	CreatedAt    time.Time  `db:"created_at"`
}

const insertOrder = `INSERT INTO orders (
	id, user_id, tg_username, name, phone, order_type, address, fast, date, time,
	items, subtotal, fee, total, comment, operator_call, payment, platform, created_at
) VALUES (
	:id, :user_id, NULLIF(:tg_username, ''), :name, :phone, :order_type, :address, :fast, :date, :time,
	:items, :subtotal, :fee, :total, NULLIF(:comment, ''), :operator_call, :payment, :platform, :created_at
)`

func (p *Postgres) SubmitOrder(ctx context.Context, o record.Order) error {
	items, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("storage: encode order items: %w", err)
	}
	row := orderRow{
		ID:           o.ID,
		UserID:       o.UserID,
		Username:     o.Username,
		Name:         o.Name,
		Phone:        o.Phone,
		OrderType:    o.DeliveryType,
		Address:      o.Address,
		Fast:         o.Fast,
		Date:         optionalDate(o.Date),
		Time:         o.Time,
		Items:        string(items),
		Subtotal:     o.Subtotal,
		Fee:          o.Fee,
		Total:        o.Total,
		Comment:      o.Comment,
		OperatorCall: o.OperatorCall,
		Payment:      o.Payment,
		Platform:     platformTelegram,
		CreatedAt:    o.CreatedAt,
	}
	if _, err := p.db.NamedExecContext(ctx, insertOrder, row); err != nil {
		return fmt.Errorf("storage: insert order %s: %w", o.ID, err)
	}
	return nil
}

type reservationRow struct {
	ID        uuid.UUID  `db:"id"`
	UserID    int64      `db:"user_id"`
	Username  string     `db:"tg_username"`
	Name      string     `db:"name"`
	Phone     string     `db:"phone"`
	Address   string     `db:"address"`
	Date      *time.Time `db:"date"`
	Time      string     `db:"time"`
	Guests    int        `db:"guests"`
	Comment   string     `db:"comment"`
	CreatedAt time.Time  `db:"created_at"`
}

const insertReservation = `INSERT INTO reservations (
	id, user_id, tg_username, name, phone, address, date, time, guests, comment, created_at
) VALUES (
	:id, :user_id, NULLIF(:tg_username, ''), :name, :phone, :address, :date, :time, :guests, NULLIF(:comment, ''), :created_at
)`

func (p *Postgres) SubmitReservation(ctx context.Context, r record.Reservation) error {
	row := reservationRow{
		ID:        r.ID,
		UserID:    r.UserID,
		Username:  r.Username,
		Name:      r.Name,
		Phone:     r.Phone,
		Address:   r.Site,
		Date:      optionalDate(r.Date),
		Time:      r.Time,
		Guests:    r.Guests,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
	if _, err := p.db.NamedExecContext(ctx, insertReservation, row); err != nil {
		return fmt.Errorf("storage: insert reservation %s: %w", r.ID, err)
	}
	return nil
}

type feedbackRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    int64     `db:"user_id"`
	Username  string    `db:"tg_username"`
	Author    string    `db:"author"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

const insertFeedback = `INSERT INTO feedback (id, user_id, tg_username, author, text, created_at)
VALUES (:id, :user_id, NULLIF(:tg_username, ''), :author, :text, :created_at)`

func (p *Postgres) SubmitFeedback(ctx context.Context, f record.Feedback) error {
	row := feedbackRow{
		ID:        f.ID,
		UserID:    f.UserID,
		Username:  f.Username,
		Author:    f.Author,
		Text:      f.Text,
		CreatedAt: f.CreatedAt,
	}
	if _, err := p.db.NamedExecContext(ctx, insertFeedback, row); err != nil {
		return fmt.Errorf("storage: insert feedback %s: %w", f.ID, err)
	}
	return nil
}

const (
	upsertChat = `INSERT INTO chats (chat_id, platform, username, first_name, last_name)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''))
ON CONFLICT (chat_id) DO UPDATE
	SET platform   = COALESCE(chats.platform, EXCLUDED.platform),
	    username   = COALESCE(EXCLUDED.username, chats.username),
	    first_name = COALESCE(EXCLUDED.first_name, chats.first_name),
	    last_name  = COALESCE(EXCLUDED.last_name, chats.last_name)`

	insertMessage = `INSERT INTO messages (chat_id, from_me, text, date) VALUES ($1, $2, $3, $4)`
)

// LogMessage upserts the chat and appends the message in one transaction.
func (p *Postgres) LogMessage(ctx context.Context, m record.Message) (err error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, upsertChat, m.ChatID, platformTelegram, m.Username, m.FirstName, m.LastName); err != nil {
		return fmt.Errorf("storage: upsert chat %d: %w", m.ChatID, err)
	}
	if _, err = tx.ExecContext(ctx, insertMessage, m.ChatID, m.FromBot, m.Text, m.At); err != nil {
		return fmt.Errorf("storage: insert message: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

func optionalDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
