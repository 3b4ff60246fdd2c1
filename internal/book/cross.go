package book

// cross runs the price-time-priority matching loop against incoming,
// consuming opposing resting liquidity level by level until incoming is
// fully filled, the limit price no longer crosses, or the opposing side is
// exhausted. Called with b.mu already held. Fills always occur at the
// resting order's price, per spec.md §4.4.
func (b *OrderBook) cross(incoming *Order) []ExecutionReport {
	var reports []ExecutionReport

	for incoming.Remaining() > 0 {
		opposing, refreshSide := b.opposingSide(incoming.Side)

		level, ok := opposing.Min()
		if !ok {
			break
		}
		if incoming.Type == Limit && priceImprovesWrongWay(incoming, level.Price) {
			break
		}

		for incoming.Remaining() > 0 {
			elem := level.Front()
			if elem == nil {
				break
			}
			resting := elem.Value.(*Order)

			fillQty := min(incoming.Remaining(), resting.Remaining())
			incoming.Filled += fillQty
			resting.Filled += fillQty
			level.Total -= fillQty
			b.lastTradePrice = level.Price
			b.lastTradeQty = fillQty

			reports = append(reports,
				ExecutionReport{
					OrderID:      incoming.ID,
					Counterparty: resting.ID,
					Symbol:       b.Symbol,
					Price:        level.Price,
					Quantity:     fillQty,
					Status:       fillStatus(incoming),
					Timestamp:    nowMicros(),
				},
				ExecutionReport{
					OrderID:      resting.ID,
					Counterparty: incoming.ID,
					Symbol:       b.Symbol,
					Price:        level.Price,
					Quantity:     fillQty,
					Status:       fillStatus(resting),
					Timestamp:    nowMicros(),
				},
			)

			if resting.Remaining() == 0 {
				resting.Status = Filled
				level.Remove(elem)
				delete(b.index, resting.ID)
			} else {
				resting.Status = Partial
			}
		}

		if level.Empty() {
			opposing.Delete(level)
		}
		b.refreshBest(refreshSide)
	}

	return reports
}

func (b *OrderBook) opposingSide(side Side) (opposing *PriceLevels, opposingSide Side) {
	if side == Buy {
		return b.asks, Sell
	}
	return b.bids, Buy
}

// priceImprovesWrongWay reports whether the opposing best level no longer
// crosses the incoming limit order's price: a buy cannot cross an ask above
// its limit, a sell cannot cross a bid below its limit.
func priceImprovesWrongWay(incoming *Order, opposingPrice float64) bool {
	if incoming.Side == Buy {
		return opposingPrice > incoming.Price
	}
	return opposingPrice < incoming.Price
}

func fillStatus(o *Order) Status {
	if o.Remaining() == 0 {
		return Filled
	}
	return Partial
}
