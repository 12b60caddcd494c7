package core

import (
	"testing"

	"rotation-trading-btc-binance/internal/model"
)

func stat(symbol, bid, ask, last string, quoteVol, changePct float64) model.TradingPairStat {
	return model.TradingPairStat{
		Symbol:             symbol,
		BidPrice:           dec(bid),
		AskPrice:           dec(ask),
		LastPrice:          dec(last),
		QuoteVolume24h:     quoteVol,
		PriceChangePercent: changePct,
	}
}

func TestRankPairsFiltersUniverse(t *testing.T) {
	pairs := []model.TradingPairStat{
		stat("EOSBTC", "0.0004", "0.0005", "0.0004", 300, 1.0),
		stat("ETCETH", "0.002", "0.0021", "0.002", 100, 0.5),        // wrong quote asset
		stat("BTCUSDT", "40000", "40001", "40000", 9999, 3.0),       // USDT pair
		stat("USDTBTC", "0.00002", "0.000021", "0.00002", 500, 1.0), // USDT anywhere in symbol
		stat("MTHBTC", "0.0000005", "0.0000006", "0.0000005", 50, 2.0), // below price floor
		stat("SNTBTC", "0", "0.0000021", "0.000002", 40, 1.0),       // no bid
		stat("LTCBTC", "0.0100", "0.0102", "0.0101", 500, 2.5),
	}

	ranked := rankPairs(pairs, "BTC", dec("0.000001"))

	if len(ranked) != 2 {
		t.Fatalf("ranked %d pairs, want 2: %v", len(ranked), ranked)
	}
	for _, p := range ranked {
		if p.Symbol != "EOSBTC" && p.Symbol != "LTCBTC" {
			t.Errorf("unexpected pair in ranking: %s", p.Symbol)
		}
	}
}

func TestRankPairsOrdersByScoreDescending(t *testing.T) {
	// EOSBTC: (0.0001/0.0004)*300*1.01 = 75.75
	// LTCBTC: (0.0002/0.0100)*500*1.025 = 10.25
	// ETCBTC: (0.0001/0.0020)*100*1.005 = 5.025
	pairs := []model.TradingPairStat{
		stat("LTCBTC", "0.0100", "0.0102", "0.0101", 500, 2.5),
		stat("ETCBTC", "0.0020", "0.0021", "0.0020", 100, 0.5),
		stat("EOSBTC", "0.0004", "0.0005", "0.0004", 300, 1.0),
	}

	ranked := rankPairs(pairs, "BTC", dec("0.000001"))

	want := []string{"EOSBTC", "LTCBTC", "ETCBTC"}
	if len(ranked) != len(want) {
		t.Fatalf("ranked %d pairs, want %d", len(ranked), len(want))
	}
	for i, sym := range want {
		if ranked[i].Symbol != sym {
			t.Errorf("ranked[%d] = %s, want %s", i, ranked[i].Symbol, sym)
		}
	}
}

func TestRankPairsStableForEqualScores(t *testing.T) {
	// Identical stats, so identical scores: feed order must survive.
	pairs := []model.TradingPairStat{
		stat("AAABTC", "0.0004", "0.0005", "0.0004", 300, 1.0),
		stat("BBBBTC", "0.0004", "0.0005", "0.0004", 300, 1.0),
		stat("CCCBTC", "0.0004", "0.0005", "0.0004", 300, 1.0),
	}

	ranked := rankPairs(pairs, "BTC", dec("0.000001"))

	want := []string{"AAABTC", "BBBBTC", "CCCBTC"}
	for i, sym := range want {
		if ranked[i].Symbol != sym {
			t.Fatalf("tie order broken: ranked[%d] = %s, want %s", i, ranked[i].Symbol, sym)
		}
	}
}

func TestPairScoreNegativeMomentumLowersRank(t *testing.T) {
	up := stat("AAABTC", "0.0004", "0.0005", "0.0004", 300, 10.0)
	down := stat("BBBBTC", "0.0004", "0.0005", "0.0004", 300, -10.0)

	if pairScore(up) <= pairScore(down) {
		t.Fatalf("score(up) = %f should exceed score(down) = %f", pairScore(up), pairScore(down))
	}
}
