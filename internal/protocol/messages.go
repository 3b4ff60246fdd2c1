// Package protocol implements the newline-delimited JSON wire format clients
// speak to the TCP server, per spec.md §6: ORDER_NEW, ORDER_CANCEL,
// MARKET_DATA, EXECUTION_REPORT, ERROR, and HEARTBEAT messages.
package protocol

import (
	"encoding/json"
	"fmt"

	"matchbook/internal/book"
	"matchbook/internal/feed"
)

// Type identifies the kind of message on the wire.
type Type string

const (
	TypeOrderNew        Type = "ORDER_NEW"
	TypeOrderCancel     Type = "ORDER_CANCEL"
	TypeMarketData      Type = "MARKET_DATA"
	TypeExecutionReport Type = "EXECUTION_REPORT"
	TypeError           Type = "ERROR"
	TypeHeartbeat       Type = "HEARTBEAT"
)

// Envelope is the outer shape of every line on the wire: a discriminant Type
// plus a type-specific payload carried as raw JSON until dispatched.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OrderNewRequest is the payload of an ORDER_NEW message.
type OrderNewRequest struct {
	RequestID string  `json:"request_id,omitempty"`
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`       // "BUY" or "SELL"
	Type      string  `json:"order_type"` // "LIMIT" or "MARKET"
	Price     float64 `json:"price,omitempty"`
	Quantity  uint64  `json:"quantity"`
}

// OrderCancelRequest is the payload of an ORDER_CANCEL message.
type OrderCancelRequest struct {
	RequestID string `json:"request_id,omitempty"`
	Symbol    string `json:"symbol"`
	OrderID   uint64 `json:"order_id"`
}

// ExecutionReportPayload is the payload of an EXECUTION_REPORT message, the
// wire projection of book.ExecutionReport.
type ExecutionReportPayload struct {
	RequestID    string  `json:"request_id,omitempty"`
	OrderID      uint64  `json:"order_id"`
	Counterparty uint64  `json:"counterparty"`
	Symbol       string  `json:"symbol"`
	Price        float64 `json:"price"`
	Quantity     uint64  `json:"quantity"`
	Status       string  `json:"status"`
	Timestamp    int64   `json:"timestamp"`
}

// FromExecutionReport projects a book.ExecutionReport onto its wire form.
func FromExecutionReport(requestID string, r book.ExecutionReport) ExecutionReportPayload {
	return ExecutionReportPayload{
		RequestID:    requestID,
		OrderID:      r.OrderID,
		Counterparty: r.Counterparty,
		Symbol:       r.Symbol,
		Price:        r.Price,
		Quantity:     r.Quantity,
		Status:       r.Status.String(),
		Timestamp:    r.Timestamp,
	}
}

// MarketDataPayload is the payload of a MARKET_DATA message, the wire
// projection of feed.Snapshot.
type MarketDataPayload struct {
	Symbol         string  `json:"symbol"`
	BestBid        float64 `json:"best_bid"`
	BestAsk        float64 `json:"best_ask"`
	LastTradePrice float64 `json:"last_trade_price"`
	LastTradeQty   uint64  `json:"last_trade_qty"`
	Timestamp      int64   `json:"timestamp"`
}

// FromSnapshot projects a feed.Snapshot onto its wire form.
func FromSnapshot(s feed.Snapshot) MarketDataPayload {
	return MarketDataPayload{
		Symbol:         s.Symbol,
		BestBid:        s.BestBid,
		BestAsk:        s.BestAsk,
		LastTradePrice: s.LastTradePrice,
		LastTradeQty:   s.LastTradeQty,
		Timestamp:      s.Timestamp,
	}
}

// ErrorPayload is the payload of an ERROR message.
type ErrorPayload struct {
	RequestID string `json:"request_id,omitempty"`
	Message   string `json:"message"`
}

// Encode marshals v as the payload of a Type-tagged envelope, one line of
// newline-delimited JSON; the returned bytes already end in '\n'.
func Encode(t Type, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode payload: %w", err)
	}
	line, err := json.Marshal(Envelope{Type: t, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("protocol: encode envelope: %w", err)
	}
	return append(line, '\n'), nil
}

// DecodeOrderNew unmarshals an envelope's payload as an OrderNewRequest.
func DecodeOrderNew(env Envelope) (OrderNewRequest, error) {
	var req OrderNewRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		return OrderNewRequest{}, fmt.Errorf("protocol: decode order_new: %w", err)
	}
	return req, nil
}

// DecodeOrderCancel unmarshals an envelope's payload as an OrderCancelRequest.
func DecodeOrderCancel(env Envelope) (OrderCancelRequest, error) {
	var req OrderCancelRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		return OrderCancelRequest{}, fmt.Errorf("protocol: decode order_cancel: %w", err)
	}
	return req, nil
}
