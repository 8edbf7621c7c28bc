package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/port"
)

// Collection keys. Every per-user key is "<prefix><userID>".
const (
	FinancePrefix  = "sloth_finance_v2_"
	TasksPrefix    = "taskflow_data_"
	SettingsPrefix = "sloth_settings_"
	SessionPrefix  = "sloth_current_session_"
	UsersKey       = "sloth_users_db"
)

// loadJSON decodes the document under key into a T. A missing key or a
// corrupt document yields the zero T and ok=false; corruption is logged
// and never returned as an error. A failed read is returned so
// read-modify-write callers do not overwrite data they could not see.
func loadJSON[T any](ctx context.Context, kv port.KeyValueStore, logger *zap.Logger, key string) (T, bool, error) {
	var out T
	raw, found, err := kv.Get(ctx, key)
	if err != nil {
		return out, false, fmt.Errorf("reading %s: %w", key, err)
	}
	if !found || len(raw) == 0 {
		return out, false, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.Warn("local store document is corrupt, using empty value",
			zap.String("key", key),
			zap.Error(err),
		)
		var zero T
		return zero, false, nil
	}
	return out, true, nil
}

// loadOrEmpty is loadJSON for plain reads, where a failed read degrades
// to the empty value.
func loadOrEmpty[T any](ctx context.Context, kv port.KeyValueStore, logger *zap.Logger, key string) (T, bool) {
	v, ok, err := loadJSON[T](ctx, kv, logger, key)
	if err != nil {
		logger.Warn("local store read failed, using empty value",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return v, ok
}

// saveJSON replaces the document under key.
func saveJSON(ctx context.Context, kv port.KeyValueStore, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return kv.Put(ctx, key, raw)
}
