package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGHandlerLiftsCaseAttrs(t *testing.T) {
	db := testutil.NewDB(t)
	h := newPGHandler(db, time.Hour)

	logger := slog.New(h).With("request_id", "req-1")
	logger.Info("ignored")
	logger.Error("resolve failed",
		"case_id", "c-1", "case_kind", "contribution", "user_id", "u-1",
		"action", "resolve", "error", errors.New("boom"), "field", "episodeCount")
	h.Stop()

	var rows []models.SystemLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "ERROR", row.Level)
	assert.Equal(t, "resolve failed", row.Message)
	assert.Equal(t, "req-1", row.RequestID)
	assert.Equal(t, "c-1", row.CaseID)
	assert.Equal(t, "contribution", row.CaseKind)
	require.NotNil(t, row.UserID)
	assert.Equal(t, "u-1", *row.UserID)
	assert.Equal(t, "resolve", row.Action)
	assert.Equal(t, "boom", row.Error)
	assert.JSONEq(t, `{"field":"episodeCount"}`, string(row.Extra))
}

func TestPGHandlerStopIsIdempotent(t *testing.T) {
	h := newPGHandler(testutil.NewDB(t), time.Hour)
	h.Stop()
	h.Stop()
}

func TestPurge(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	old := models.SystemLog{ID: uuid.New(), Timestamp: now.Add(-Retention - time.Hour), Level: "ERROR"}
	recent := models.SystemLog{ID: uuid.New(), Timestamp: now.Add(-time.Hour), Level: "ERROR"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&recent).Error)

	deleted, err := Purge(db, now.Add(-Retention))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var left int64
	require.NoError(t, db.Model(&models.SystemLog{}).Count(&left).Error)
	assert.Equal(t, int64(1), left)
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandlerContinuesPastFailure(t *testing.T) {
	var buf bytes.Buffer
	out := slog.NewJSONHandler(&buf, nil)
	m := NewMultiHandler(failingHandler{out}, out)

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "claimed", 0)
	record.AddAttrs(slog.String("case_id", "c-9"))
	err := m.Handle(context.Background(), record)
	assert.EqualError(t, err, "sink down")
	assert.Contains(t, buf.String(), `"case_id":"c-9"`)
	assert.Contains(t, buf.String(), `"msg":"claimed"`)
}

func TestMultiHandlerEnabled(t *testing.T) {
	pg := newPGHandler(testutil.NewDB(t), time.Hour)
	defer pg.Stop()

	m := NewMultiHandler(pg)
	assert.False(t, m.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, m.Enabled(context.Background(), slog.LevelError))
}
