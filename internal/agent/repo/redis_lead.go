package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/autoimport-pro/server/internal/agent/model"
	errx "github.com/autoimport-pro/server/internal/core/error"
	logx "github.com/autoimport-pro/server/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	fieldQualification = "qualification"
	fieldStatus        = "status"
	fieldUpdatedAt     = "updated_at"
)

// RedisLeadRepository keeps a lead as a hash and its messages as a list.
// Both keys expire after ttl of inactivity.
type RedisLeadRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisLeadRepository(rdb redis.Cmdable, ttl time.Duration) *RedisLeadRepository {
	return &RedisLeadRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisLeadRepository) leadKey(sessionID string) string {
	return fmt.Sprintf("lead:%s", sessionID)
}

func (r *RedisLeadRepository) conversationKey(sessionID string) string {
	return fmt.Sprintf("conversation:%s:messages", sessionID)
}

func (r *RedisLeadRepository) LoadSlots(ctx context.Context, sessionID string) (*model.Slots, error) {
	key := r.leadKey(sessionID)
	h, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to load lead from redis")
		return nil, errx.WrapRedis(err)
	}
	if len(h) == 0 {
		return nil, nil
	}

	return &model.Slots{
		Brand:         hashString(h, model.SlotBrand),
		Model:         hashString(h, model.SlotModel),
		BudgetMin:     hashInt(h, model.SlotBudgetMin),
		BudgetMax:     hashInt(h, model.SlotBudgetMax),
		SourceCountry: hashString(h, model.SlotSourceCountry),
		Timeline:      hashString(h, model.SlotTimeline),
		BodyType:      hashString(h, model.SlotBodyType),
		CustomerName:  hashString(h, model.SlotCustomerName),
		Phone:         hashString(h, model.SlotPhone),
	}, nil
}

// SaveTurn writes only the known slots, so earlier facts survive a turn that
// did not mention them.
func (r *RedisLeadRepository) SaveTurn(ctx context.Context, rec model.TurnRecord) error {
	leadKey := r.leadKey(rec.SessionID)
	convKey := r.conversationKey(rec.SessionID)

	fields := map[string]any{
		fieldStatus:    string(model.LeadStatusFor(rec.Stage)),
		fieldUpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for name, v := range rec.Slots.Map() {
		fields[name] = fmt.Sprint(v)
	}
	if rec.Qualification != model.QualificationNone {
		fields[fieldQualification] = string(rec.Qualification)
	}

	msgs := make([]any, 0, len(rec.Messages))
	for _, m := range rec.Messages {
		b, err := json.Marshal(m)
		if err != nil {
			logx.Error().Err(err).Str("session_id", rec.SessionID).Msg("failed to marshal message")
			return fmt.Errorf("marshal message: %w", err)
		}
		msgs = append(msgs, b)
	}

	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, leadKey, fields)
		if len(msgs) > 0 {
			p.RPush(ctx, convKey, msgs...)
		}
		if r.ttl > 0 {
			p.Expire(ctx, leadKey, r.ttl)
			p.Expire(ctx, convKey, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", leadKey).Msg("failed to save turn to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisLeadRepository) LoadHistory(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	key := r.conversationKey(sessionID)

	rows, err := r.rdb.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]model.Message, 0, len(rows))
	for i, s := range rows {
		var m model.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// qualification returns the stored tier, or QualificationNone.
func (r *RedisLeadRepository) qualification(ctx context.Context, sessionID string) (model.Qualification, error) {
	v, err := r.rdb.HGet(ctx, r.leadKey(sessionID), fieldQualification).Result()
	if err == redis.Nil {
		return model.QualificationNone, nil
	}
	if err != nil {
		return model.QualificationNone, errx.WrapRedis(err)
	}
	return model.Qualification(v), nil
}

func hashString(h map[string]string, field string) *string {
	v, ok := h[field]
	if !ok || v == "" {
		return nil
	}
	return model.String(v)
}

func hashInt(h map[string]string, field string) *int64 {
	v, ok := h[field]
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		logx.Warn().Str("field", field).Str("value", v).Msg("ignoring malformed number in lead hash")
		return nil
	}
	return model.Int64(n)
}

var (
	_ model.LeadRepository = (*RedisLeadRepository)(nil)
	_ model.HistoryLoader  = (*RedisLeadRepository)(nil)
)
