package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/internal/book"
	"matchbook/internal/feed"
)

func TestEncodeDecode_OrderNewRoundTrips(t *testing.T) {
	req := OrderNewRequest{RequestID: "r1", Symbol: "AAPL", Side: "BUY", Type: "LIMIT", Price: 100.5, Quantity: 10}
	line, err := Encode(TypeOrderNew, req)
	require.NoError(t, err)
	assert.True(t, line[len(line)-1] == '\n')

	var env Envelope
	require.NoError(t, json.Unmarshal(line[:len(line)-1], &env))
	assert.Equal(t, TypeOrderNew, env.Type)

	got, err := DecodeOrderNew(env)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestEncodeDecode_OrderCancelRoundTrips(t *testing.T) {
	req := OrderCancelRequest{RequestID: "r2", Symbol: "AAPL", OrderID: 42}
	line, err := Encode(TypeOrderCancel, req)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(line[:len(line)-1], &env))

	got, err := DecodeOrderCancel(env)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestFromExecutionReport_ProjectsStatusString(t *testing.T) {
	r := book.ExecutionReport{OrderID: 1, Counterparty: 2, Symbol: "AAPL", Price: 100, Quantity: 5, Status: book.Filled, Timestamp: 123}
	payload := FromExecutionReport("r3", r)
	assert.Equal(t, "FILLED", payload.Status)
	assert.Equal(t, uint64(1), payload.OrderID)
}

func TestFromSnapshot_Projects(t *testing.T) {
	s := feed.Snapshot{Symbol: "AAPL", BestBid: 100, BestAsk: 101, LastTradePrice: 100.5, LastTradeQty: 10, Timestamp: 99}
	payload := FromSnapshot(s)
	assert.Equal(t, "AAPL", payload.Symbol)
	assert.Equal(t, 101.0, payload.BestAsk)
}

func TestDecodeOrderNew_InvalidPayloadErrors(t *testing.T) {
	env := Envelope{Type: TypeOrderNew, Payload: json.RawMessage(`{"quantity": "not-a-number"}`)}
	_, err := DecodeOrderNew(env)
	assert.Error(t, err)
}
