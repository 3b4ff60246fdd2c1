// Command matchclient is a manual-testing CLI for matchbookd: it connects
// over TCP, sends one request (place/cancel/heartbeat), and prints every
// line the server sends back.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"matchbook/internal/protocol"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9090", "Address of the matchbookd TCP front end")
	action := flag.String("action", "place", "Action to perform: 'place', 'cancel', or 'heartbeat'")

	symbol := flag.String("symbol", "AAPL", "Symbol to trade")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "Order type: 'limit' or 'market'")
	price := flag.Float64("price", 100.0, "Limit price")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")
	orderID := flag.Uint64("order-id", 0, "Order id to cancel")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", *serverAddr)

	go printReports(conn)

	switch strings.ToLower(*action) {
	case "place":
		for i, qty := range parseQuantities(*qtyStr) {
			req := protocol.OrderNewRequest{
				RequestID: fmt.Sprintf("cli-%d-%d", time.Now().UnixNano(), i),
				Symbol:    *symbol,
				Side:      strings.ToUpper(*sideStr),
				Type:      strings.ToUpper(*typeStr),
				Price:     *price,
				Quantity:  qty,
			}
			if err := sendRequest(conn, protocol.TypeOrderNew, req); err != nil {
				log.Printf("failed to send order (qty %d): %v", qty, err)
				continue
			}
			fmt.Printf("-> sent %s %s %d @ %.2f\n", req.Side, req.Symbol, req.Quantity, req.Price)
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		req := protocol.OrderCancelRequest{
			RequestID: fmt.Sprintf("cli-%d", time.Now().UnixNano()),
			Symbol:    *symbol,
			OrderID:   *orderID,
		}
		if err := sendRequest(conn, protocol.TypeOrderCancel, req); err != nil {
			log.Printf("failed to send cancel: %v", err)
		} else {
			fmt.Printf("-> sent cancel for order %d on %s\n", req.OrderID, req.Symbol)
		}

	case "heartbeat":
		if err := sendRequest(conn, protocol.TypeHeartbeat, struct{}{}); err != nil {
			log.Printf("failed to send heartbeat: %v", err)
		}

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("listening for reports... (Ctrl+C to exit)")
	select {}
}

func parseQuantities(input string) []uint64 {
	parts := strings.Split(input, ",")
	result := make([]uint64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		val, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			log.Printf("warning: invalid quantity %q, skipping", p)
			continue
		}
		result = append(result, val)
	}
	return result
}

func sendRequest(conn net.Conn, typ protocol.Type, payload any) error {
	line, err := protocol.Encode(typ, payload)
	if err != nil {
		return err
	}
	_, err = conn.Write(line)
	return err
}

func printReports(conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}

		var env protocol.Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			fmt.Printf("[malformed message] %v\n", err)
			continue
		}

		switch env.Type {
		case protocol.TypeExecutionReport:
			var p protocol.ExecutionReportPayload
			json.Unmarshal(env.Payload, &p)
			fmt.Printf("\n[EXECUTION] %s | qty %d @ %.2f | status %s | vs order %d\n",
				p.Symbol, p.Quantity, p.Price, p.Status, p.Counterparty)
		case protocol.TypeMarketData:
			var p protocol.MarketDataPayload
			json.Unmarshal(env.Payload, &p)
			fmt.Printf("\n[MARKET DATA] %s bid %.2f / ask %.2f | last %.2f x %d\n",
				p.Symbol, p.BestBid, p.BestAsk, p.LastTradePrice, p.LastTradeQty)
		case protocol.TypeError:
			var p protocol.ErrorPayload
			json.Unmarshal(env.Payload, &p)
			fmt.Printf("\n[SERVER ERROR] %s\n", p.Message)
		case protocol.TypeHeartbeat:
			fmt.Println("\n[heartbeat]")
		default:
			fmt.Printf("\n[unknown message type %q]\n", env.Type)
		}
	}
}
