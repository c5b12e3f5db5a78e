package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/LJTian/hotcache/internal/section"
)

func setupMockJournal(t *testing.T) (*Journal, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}
	return &Journal{DB: gormDB}, mock
}

func TestJournalEnsureChannelExisting(t *testing.T) {
	j, mock := setupMockJournal(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "channels" WHERE code = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "status"}).
			AddRow(3, section.TopNews, "头条新闻", "active"))

	ch, err := j.EnsureChannel(context.Background(), section.Channel{Key: section.TopNews})
	require.NoError(t, err)
	assert.Equal(t, uint(3), ch.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalEnsureChannelCreates(t *testing.T) {
	j, mock := setupMockJournal(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "channels" WHERE code = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "channels"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	ch, err := j.EnsureChannel(context.Background(), section.Channel{
		Key: section.DoubanHotMovies, Name: "豆瓣热映", Route: "/douban/hot-movies/",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(7), ch.ID)
	assert.Equal(t, "active", ch.Status)
	assert.Equal(t, "/douban/hot-movies/", ch.Route)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalEnsureChannelQueryError(t *testing.T) {
	j, mock := setupMockJournal(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "channels"`)).
		WillReturnError(errors.New("connection reset"))

	_, err := j.EnsureChannel(context.Background(), section.Channel{Key: "k"})
	assert.EqualError(t, err, "connection reset")
}

func TestJournalRecordRun(t *testing.T) {
	j, mock := setupMockJournal(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "refresh_runs"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	run, err := j.RecordRun(context.Background(), start, start.Add(time.Second),
		map[string]int{section.TopNews: 3}, errors.New("bilibili: upstream 502"))
	require.NoError(t, err)
	assert.Equal(t, uint(1), run.ID)
	assert.Equal(t, RunFailed, run.Status)
	assert.Equal(t, "bilibili: upstream 502", run.Error)
	assert.Equal(t, 3, run.Summary[section.TopNews])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalRecentRuns(t *testing.T) {
	j, mock := setupMockJournal(t)
	started := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "refresh_runs" ORDER BY started_at DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "started_at", "status", "summary"}).
			AddRow(2, started, RunOK, []byte(`{"top_news":10}`)))

	runs, err := j.RecentRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunOK, runs[0].Status)
	assert.Equal(t, "10", fmt.Sprint(runs[0].Summary["top_news"]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalChannels(t *testing.T) {
	j, mock := setupMockJournal(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "channels" ORDER BY code ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code"}).AddRow(1, "a").AddRow(2, "b"))

	list, err := j.Channels(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "热门", truncateRunes("热门电影", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 5))
}

func TestJournalCloseClosesPool(t *testing.T) {
	j, mock := setupMockJournal(t)
	mock.ExpectClose()

	require.NoError(t, j.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
