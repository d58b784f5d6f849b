package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"AlcoMonitorAPI/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestAlarmRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAlarmRepository(db)

	value, threshold := 61.0, 60.0
	alarm := &models.Alarm{
		ID:        "a1",
		Signal:    models.SignalKub,
		Message:   "T куба достигла 61.0",
		Value:     &value,
		Threshold: &threshold,
		CreatedAt: t0,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO alarms")).
		WithArgs("a1", models.SignalKub, alarm.Message, 61.0, 60.0, t0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), alarm))
}

func TestAlarmRepository_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAlarmRepository(db)

	rows := sqlmock.NewRows([]string{"id", "signal", "message", "value", "threshold", "created_at"}).
		AddRow("a2", models.SignalWatchdog, "no data", nil, nil, t0.Add(time.Minute)).
		AddRow("a1", models.SignalKub, "hot", 61.0, 60.0, t0)

	mock.ExpectQuery(regexp.QuoteMeta("FROM alarms")).
		WithArgs(10, 0).
		WillReturnRows(rows)

	alarms, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, alarms, 2)

	assert.Equal(t, "a2", alarms[0].ID)
	assert.Nil(t, alarms[0].Value)
	require.NotNil(t, alarms[1].Value)
	assert.Equal(t, 61.0, *alarms[1].Value)
}

func TestAlarmRepository_ListError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAlarmRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM alarms")).WillReturnError(errors.New("boom"))

	_, err := repo.List(context.Background(), 10, 0)
	assert.ErrorContains(t, err, "failed to query alarms")
}

func TestSampleRepository_InsertAndRange(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSampleRepository(db)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO samples")).
		WithArgs("term_k", t0, 65.5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(ctx, models.ChannelSample{
		Channel:   models.ChannelCube,
		Timestamp: t0,
		Value:     65.5,
	}))

	mock.ExpectQuery(regexp.QuoteMeta("FROM samples")).
		WithArgs("term_k", t0, t0.Add(time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp", "value"}).
			AddRow(t0, 65.5).
			AddRow(t0.Add(time.Second), 65.7))

	samples, err := repo.Range(ctx, models.ChannelCube, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []models.Sample{
		{Timestamp: t0, Value: 65.5},
		{Timestamp: t0.Add(time.Second), Value: 65.7},
	}, samples)
}

func TestSampleRepository_DeleteOlderThan(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSampleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM samples")).
		WithArgs(t0).
		WillReturnResult(sqlmock.NewResult(0, 42))

	n, err := repo.DeleteOlderThan(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestCommandRepository_Lifecycle(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCommandRepository(db)
	ctx := context.Background()

	cmd := &models.Command{ID: "c1", Topic: "work", Payload: "4", Status: models.CommandPending, IssuedAt: t0}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO commands")).
		WithArgs("c1", "work", "4", models.CommandPending, t0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(ctx, cmd))

	sentAt := t0.Add(time.Second)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE commands")).
		WithArgs(models.CommandSent, "", sentAt, "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(ctx, "c1", models.CommandSent, "", &sentAt))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE commands")).
		WithArgs(models.CommandFailed, "timeout", nil, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateStatus(ctx, "missing", models.CommandFailed, "timeout", nil)
	assert.ErrorContains(t, err, "command not found")
}

func TestCommandRepository_ListRecent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCommandRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM commands")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic", "payload", "status", "error", "issued_at", "sent_at"}).
			AddRow("c1", "work", "4", models.CommandSent, "", t0, t0))

	commands, err := repo.ListRecent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, commands, 1)
	require.NotNil(t, commands[0].SentAt)
	assert.Equal(t, t0, *commands[0].SentAt)
}
