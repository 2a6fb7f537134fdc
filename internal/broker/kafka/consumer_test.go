package kafka

import (
	"context"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func TestConsumer_ConsumeCommitsAfterHandler(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Key: []byte("1"), Value: []byte(`{"location":"PTA"}`)},
		{Key: []byte("2"), Value: []byte(`{"location":"KLM"}`)},
	}}
	c := newConsumerWithReader(r)

	var got [][]byte
	err := c.Consume(context.Background(), func(key, value []byte) error {
		got = append(got, value)
		return nil
	})
	require.ErrorIs(t, err, io.EOF)

	require.Len(t, got, 2)
	require.Len(t, r.committed, 2)
	require.Equal(t, []byte("1"), r.committed[0].Key)
}

// При ошибке обработчика сообщение не коммитится и будет перечитано.
func TestConsumer_HandlerErrorSkipsCommit(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Key: []byte("1"), Value: []byte("boom")},
	}}
	c := newConsumerWithReader(r)

	wantErr := errors.New("handler failed")
	err := c.Consume(context.Background(), func(key, value []byte) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	require.Empty(t, r.committed)
}

func TestConsumer_Close(t *testing.T) {
	r := &fakeReader{}
	c := newConsumerWithReader(r)

	require.NoError(t, c.Close())
	require.True(t, r.closed)
}
