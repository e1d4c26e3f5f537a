package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got []Event
	err error
}

func (r *recorder) Publish(_ context.Context, e Event) error {
	r.got = append(r.got, e)
	return r.err
}

func TestMultiDeliversToEveryPublisher(t *testing.T) {
	failing := &recorder{err: errors.New("broker down")}
	ok := &recorder{}

	err := Multi{failing, ok}.Publish(context.Background(), Event{Key: PaymentPaid, OrderID: 7})

	require.Error(t, err)
	assert.ErrorIs(t, err, failing.err)
	require.Len(t, ok.got, 1)
	assert.Equal(t, int64(7), ok.got[0].OrderID)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{Key: AppointmentExpired}))
	assert.NoError(t, Multi{}.Publish(context.Background(), Event{Key: AppointmentExpired}))
}
