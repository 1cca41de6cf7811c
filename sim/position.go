package sim

import "github.com/rustyeddy/propbot/broker"

// unrealizedPL is the account-currency result of closing p at mark.
func unrealizedPL(p broker.Position, mark, contract, quoteToAccount float64) float64 {
	move := mark - p.Entry
	if !p.IsLong() {
		move = -move
	}
	return move * p.Volume * contract * quoteToAccount
}

// closingMark is the side of the book a position closes against.
func closingMark(p broker.Position, bid, ask float64) float64 {
	if p.IsLong() {
		return bid
	}
	return ask
}

func hitStopLoss(p broker.Position, mark float64) bool {
	if p.Stop == 0 {
		return false
	}
	if p.IsLong() {
		return mark <= p.Stop
	}
	return mark >= p.Stop
}

func hitTakeProfit(p broker.Position, mark float64) bool {
	if p.TakeProfit == 0 {
		return false
	}
	if p.IsLong() {
		return mark >= p.TakeProfit
	}
	return mark <= p.TakeProfit
}

// tradeMargin is the account-currency margin held for a position.
func tradeMargin(volume, contract, price, quoteToAccount, marginRate float64) float64 {
	return abs(volume) * contract * price * quoteToAccount * marginRate
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
