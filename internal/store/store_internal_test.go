package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/trentd187/fifa-roster/internal/apperr"
	"github.com/trentd187/fifa-roster/internal/store/storetest"
)

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(driver.ErrBadConn))
	assert.True(t, isTransient(fmt.Errorf("query: %w", driver.ErrBadConn)))
	assert.True(t, isTransient(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
	assert.False(t, isTransient(&net.OpError{Op: "read", Err: errors.New("reset")}))
	assert.False(t, isTransient(errors.New("syntax error")))
	assert.False(t, isTransient(nil))
}

func TestReadRetriesOnceOnTransientError(t *testing.T) {
	s := New(storetest.New(t))

	calls := 0
	err := s.read(context.Background(), func(*gorm.DB) error {
		calls++
		if calls == 1 {
			return driver.ErrBadConn
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = s.read(context.Background(), func(*gorm.DB) error {
		calls++
		return driver.ErrBadConn
	})
	assert.ErrorIs(t, err, driver.ErrBadConn)
	assert.Equal(t, 2, calls, "at most one retry")
}

func TestReadDoesNotRetryOrdinaryErrors(t *testing.T) {
	s := New(storetest.New(t))

	calls := 0
	_ = s.read(context.Background(), func(*gorm.DB) error {
		calls++
		return errors.New("no such table")
	})
	assert.Equal(t, 1, calls)
}

func TestWriteRollsBack(t *testing.T) {
	db := storetest.New(t)
	s := New(db)

	err := s.write(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO players (name, nationality, position, imagedir) VALUES ('Temp', '', '', '')").Error; err != nil {
			return err
		}
		return apperr.Invalid("abort")
	})
	assert.True(t, apperr.Is(err, apperr.Validation))

	var n int64
	db.Table("players").Count(&n)
	assert.Zero(t, n)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil, ""))
	assert.True(t, apperr.Is(classify(gorm.ErrDuplicatedKey, "dup"), apperr.Conflict))
	assert.True(t, apperr.Is(classify(gorm.ErrForeignKeyViolated, "fk"), apperr.Conflict))
	assert.True(t, apperr.Is(classify(apperr.Missing("x"), ""), apperr.NotFound))

	err := classify(context.DeadlineExceeded, "")
	assert.Equal(t, apperr.Storage, apperr.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
