package space

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metaverse2d/internal/world"
)

var selectBounds = regexp.QuoteMeta(`SELECT width, height FROM spaces WHERE id = $1`)

const ttl = time.Minute

func TestGetSpaceBounds_CacheHit(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdc, redisMock := redismock.NewClientMock()

	redisMock.ExpectHGetAll("space:s1").SetVal(map[string]string{"w": "100", "h": "200"})

	svc := NewSpaceService(db, rdc, ttl)
	b, err := svc.GetSpaceBounds(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, world.Bounds{Width: 100, Height: 200}, b)

	assert.NoError(t, redisMock.ExpectationsWereMet())
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestGetSpaceBounds_CacheMissFillsCache(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdc, redisMock := redismock.NewClientMock()

	redisMock.ExpectHGetAll("space:s1").SetVal(map[string]string{})
	sqlMock.ExpectQuery(selectBounds).WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"width", "height"}).AddRow(100, 200))
	redisMock.ExpectHSet("space:s1", "w", 100, "h", 200).SetVal(2)
	redisMock.ExpectExpire("space:s1", ttl).SetVal(true)

	svc := NewSpaceService(db, rdc, ttl)
	b, err := svc.GetSpaceBounds(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, world.Bounds{Width: 100, Height: 200}, b)

	assert.NoError(t, redisMock.ExpectationsWereMet())
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestGetSpaceBounds_NotFound(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdc, redisMock := redismock.NewClientMock()

	redisMock.ExpectHGetAll("space:missing").SetVal(map[string]string{})
	sqlMock.ExpectQuery(selectBounds).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"width", "height"}))

	svc := NewSpaceService(db, rdc, ttl)
	_, err = svc.GetSpaceBounds(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSpaceNotFound)

	assert.NoError(t, redisMock.ExpectationsWereMet())
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestGetSpaceBounds_CacheDownFallsBackToDB(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdc, redisMock := redismock.NewClientMock()

	redisMock.ExpectHGetAll("space:s1").SetErr(errors.New("connection refused"))
	sqlMock.ExpectQuery(selectBounds).WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"width", "height"}).AddRow(10, 20))
	redisMock.ExpectHSet("space:s1", "w", 10, "h", 20).SetErr(errors.New("connection refused"))
	redisMock.ExpectExpire("space:s1", ttl).SetErr(errors.New("connection refused"))

	svc := NewSpaceService(db, rdc, ttl)
	b, err := svc.GetSpaceBounds(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, world.Bounds{Width: 10, Height: 20}, b)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestGetSpaceBounds_DBError(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlMock.ExpectQuery(selectBounds).WithArgs("s1").WillReturnError(errors.New("db down"))

	svc := NewSpaceService(db, nil, ttl)
	_, err = svc.GetSpaceBounds(context.Background(), "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSpaceNotFound)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestBoundsFromHash(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]string
		want world.Bounds
		ok   bool
	}{
		{"complete", map[string]string{"w": "3", "h": "4"}, world.Bounds{Width: 3, Height: 4}, true},
		{"empty", map[string]string{}, world.Bounds{}, false},
		{"partial", map[string]string{"w": "3"}, world.Bounds{}, false},
		{"garbage", map[string]string{"w": "x", "h": "4"}, world.Bounds{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := boundsFromHash(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
