package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/autoimport-pro/server/internal/agent/model"
	errx "github.com/autoimport-pro/server/internal/core/error"
	logx "github.com/autoimport-pro/server/pkg/logger"
)

// SQLiteLeadRepository keeps leads and their conversation log in SQLite.
type SQLiteLeadRepository struct {
	db *sql.DB
}

func NewSQLiteLeadRepository(db *sql.DB) *SQLiteLeadRepository {
	return &SQLiteLeadRepository{db: db}
}

func (r *SQLiteLeadRepository) LoadSlots(ctx context.Context, sessionID string) (*model.Slots, error) {
	var (
		name, phone, brand, carModel, country, timeline, bodyType sql.NullString
		budgetMin, budgetMax                                      sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `SELECT name, phone, car_brand, car_model, budget_min, budget_max,
		country, timeline, body_type FROM leads WHERE session_id = ?`, sessionID).
		Scan(&name, &phone, &brand, &carModel, &budgetMin, &budgetMax, &country, &timeline, &bodyType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to load lead")
		return nil, errx.WrapDB(err)
	}

	return &model.Slots{
		Brand:         fromNullString(brand),
		Model:         fromNullString(carModel),
		BudgetMin:     fromNullInt(budgetMin),
		BudgetMax:     fromNullInt(budgetMax),
		SourceCountry: fromNullString(country),
		Timeline:      fromNullString(timeline),
		BodyType:      fromNullString(bodyType),
		CustomerName:  fromNullString(name),
		Phone:         fromNullString(phone),
	}, nil
}

// SaveTurn upserts the lead and appends the turn's messages in one transaction.
// Known columns are only overwritten by non-null values, so a lead never loses
// facts or its qualification.
func (r *SQLiteLeadRepository) SaveTurn(ctx context.Context, rec model.TurnRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errx.WrapDB(err)
	}
	defer func() { _ = tx.Rollback() }()

	s := rec.Slots
	var qualification any
	if rec.Qualification != model.QualificationNone {
		qualification = string(rec.Qualification)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO leads (session_id, name, phone, car_brand, car_model, budget_min,
		budget_max, country, timeline, body_type, qualification, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			name          = COALESCE(excluded.name, leads.name),
			phone         = COALESCE(excluded.phone, leads.phone),
			car_brand     = COALESCE(excluded.car_brand, leads.car_brand),
			car_model     = COALESCE(excluded.car_model, leads.car_model),
			budget_min    = COALESCE(excluded.budget_min, leads.budget_min),
			budget_max    = COALESCE(excluded.budget_max, leads.budget_max),
			country       = COALESCE(excluded.country, leads.country),
			timeline      = COALESCE(excluded.timeline, leads.timeline),
			body_type     = COALESCE(excluded.body_type, leads.body_type),
			qualification = COALESCE(excluded.qualification, leads.qualification),
			status        = excluded.status,
			updated_at    = CURRENT_TIMESTAMP`,
		rec.SessionID,
		toNullString(s.CustomerName), toNullString(s.Phone), toNullString(s.Brand), toNullString(s.Model),
		toNullInt(s.BudgetMin), toNullInt(s.BudgetMax),
		toNullString(s.SourceCountry), toNullString(s.Timeline), toNullString(s.BodyType),
		qualification, string(model.LeadStatusFor(rec.Stage)),
	)
	if err != nil {
		logx.Error().Err(err).Str("session_id", rec.SessionID).Msg("failed to upsert lead")
		return errx.WrapDB(err)
	}

	for _, m := range rec.Messages {
		if _, err := tx.ExecContext(ctx, `INSERT INTO conversations (session_id, role, content) VALUES (?, ?, ?)`,
			rec.SessionID, string(m.Role), m.Content); err != nil {
			logx.Error().Err(err).Str("session_id", rec.SessionID).Msg("failed to append message")
			return errx.WrapDB(err)
		}
	}

	return errx.WrapDB(tx.Commit())
}

func (r *SQLiteLeadRepository) LoadHistory(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT role, content FROM (
		SELECT id, role, content FROM conversations WHERE session_id = ? ORDER BY id DESC LIMIT ?
	) ORDER BY id ASC`, sessionID, limit)
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to load conversation history")
		return nil, errx.WrapDB(err)
	}
	defer rows.Close()

	msgs := make([]model.Message, 0, limit)
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, errx.WrapDB(err)
		}
		msgs = append(msgs, model.Message{Role: model.Role(role), Content: content})
	}
	return msgs, errx.WrapDB(rows.Err())
}

// leadStatus returns the stored status and qualification, for reporting.
func (r *SQLiteLeadRepository) leadStatus(ctx context.Context, sessionID string) (model.LeadStatus, model.Qualification, error) {
	var status string
	var qualification sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT status, qualification FROM leads WHERE session_id = ?`, sessionID).
		Scan(&status, &qualification)
	if err != nil {
		return "", model.QualificationNone, errx.WrapDB(err)
	}
	return model.LeadStatus(status), model.Qualification(qualification.String), nil
}

func fromNullString(v sql.NullString) *string {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	return model.String(v.String)
}

func fromNullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return model.Int64(v.Int64)
}

func toNullString(p *string) sql.NullString {
	if p == nil || strings.TrimSpace(*p) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func toNullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

var (
	_ model.LeadRepository = (*SQLiteLeadRepository)(nil)
	_ model.HistoryLoader  = (*SQLiteLeadRepository)(nil)
)
