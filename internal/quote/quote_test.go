package quote

import "testing"

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in   string
		want Period
		days int
	}{
		{"1d", Period1D, 1},
		{"5d", Period5D, 5},
		{"1mo", Period1Mo, 30},
		{"3MO", Period3Mo, 90},
		{" 6mo ", Period6Mo, 180},
		{"1y", Period1Y, 365},
		{"bogus", Period1Mo, 30},
		{"", Period1Mo, 30},
	}
	for _, c := range cases {
		got := ParsePeriod(c.in)
		if got != c.want || got.Days() != c.days {
			t.Fatalf("ParsePeriod(%q) = %s (%d days), want %s (%d)", c.in, got, got.Days(), c.want, c.days)
		}
	}
}

func TestParseAssetClass(t *testing.T) {
	if ParseAssetClass("crypto") != AssetCrypto {
		t.Fatal("crypto")
	}
	if ParseAssetClass("ETF") != AssetFund {
		t.Fatal("etf alias")
	}
	if ParseAssetClass("") != AssetEquity {
		t.Fatal("default")
	}
}

func TestInferAssetClass(t *testing.T) {
	if InferAssetClass("BTCUSD") != AssetCrypto {
		t.Fatal("known crypto pair")
	}
	if InferAssetClass("dogeusd") != AssetCrypto {
		t.Fatal("case-insensitive")
	}
	if InferAssetClass("SHIBUSDT") != AssetCrypto {
		t.Fatal("usdt suffix")
	}
	if InferAssetClass("AAPL") != AssetEquity {
		t.Fatal("equity default")
	}
}
