package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dmehra2102/Pharmacy-Management-System/pkg/logging"
)

func writeConflict() error {
	return mongo.CommandError{Code: 112, Name: "WriteConflict", Labels: []string{"TransientTransactionError"}}
}

func TestRetryRerunsWriteConflicts(t *testing.T) {
	tr := &Transactor{log: logging.Discard(), retryWindow: time.Second}

	calls := 0
	err := tr.retry(context.Background(), func() error {
		calls++
		if calls <= 5 {
			return writeConflict()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 6, calls)
}

func TestRetryStopsOnOtherErrors(t *testing.T) {
	tr := &Transactor{log: logging.Discard(), retryWindow: time.Second}
	short := errors.New("insufficient stock")

	calls := 0
	err := tr.retry(context.Background(), func() error {
		calls++
		return short
	})
	assert.Same(t, short, err)
	assert.Equal(t, 1, calls)
}

func TestRetryGivesUpAfterWindow(t *testing.T) {
	tr := &Transactor{log: logging.Discard(), retryWindow: 30 * time.Millisecond}

	err := tr.retry(context.Background(), writeConflict)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
}

func TestRetryStopsWhenContextEnds(t *testing.T) {
	tr := &Transactor{log: logging.Discard(), retryWindow: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := tr.retry(ctx, func() error {
		calls++
		if calls == 2 {
			cancel()
		}
		return writeConflict()
	})
	assert.ErrorIs(t, err, context.Canceled)
}
