package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	m := NewMockDB(t)

	assert.NotNil(t, m.DB)
	assert.NotNil(t, m.Mock)
	assert.NotNil(t, m.SqlDB)
	// opening the gorm connection must not leave an expectation behind
	m.ExpectationsWereMet(t)
}

func TestNewMockDB_MonitorsPings(t *testing.T) {
	m := NewMockDB(t)

	assert.Error(t, m.SqlDB.PingContext(context.Background()))

	m.Mock.ExpectPing()
	require.NoError(t, m.SqlDB.PingContext(context.Background()))
	m.ExpectationsWereMet(t)
}

func TestNewTestUUID_IsDeterministic(t *testing.T) {
	assert.Equal(t, NewTestUUID("flat-1"), NewTestUUID("flat-1"))
	assert.NotEqual(t, NewTestUUID("flat-1"), NewTestUUID("flat-2"))
}

func TestWaitForCondition(t *testing.T) {
	calls := 0
	ok := WaitForCondition(t, func() bool {
		calls++
		return calls >= 3
	}, time.Second, time.Millisecond)
	assert.True(t, ok)

	assert.False(t, WaitForCondition(t, func() bool { return false }, 10*time.Millisecond, time.Millisecond))
}
