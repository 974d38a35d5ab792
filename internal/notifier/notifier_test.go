package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoldSentinel/internal/model"
)

func TestConsoleSink_JSON(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, true)

	require.NoError(t, sink.Publish(context.Background(), sampleSnapshot()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2345.67, decoded["current_price"])
	assert.Equal(t, "LIVE", decoded["source"])
	assert.Contains(t, decoded, "last_error")
}

func TestConsoleSink_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsoleSink(&buf, false).Publish(context.Background(), sampleSnapshot()))
	assert.Contains(t, buf.String(), "Gold: $2345.67")
}

type failingSink struct{ calls int }

func (f *failingSink) Publish(context.Context, *model.Snapshot) error {
	f.calls++
	return errors.New("boom")
}

func TestMulti_TriesEverySink(t *testing.T) {
	first, second := &failingSink{}, &failingSink{}
	err := Multi{first, second}.Publish(context.Background(), sampleSnapshot())

	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}
