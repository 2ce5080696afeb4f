package sentiment

// Crypto slang inverts common-language polarity ("moon", "dump"), so these
// override the general lexicon when present.
var defaultPositive = []string{
	"bullish", "moon", "rocket", "pump", "gains", "breakthrough", "adoption",
	"partnership", "launch", "approved", "soaring", "surge", "rally", "breakout",
	"accumulate", "hodl", "gem", "alpha", "long", "buy", "accumulation",
	"institutional", "etf", "utility",
	"🚀", "📈", "💎", "🐂",
}

var defaultNegative = []string{
	"bearish", "dump", "crash", "scam", "rug", "rugpull", "fud", "decline",
	"plunge", "reject", "rejected", "liquidation", "short", "hack", "exploit",
	"vulnerable", "warning", "caution", "ponzi", "bubble", "overvalued", "sell",
	"exit", "risk", "fraud",
	"📉", "🐻", "💀",
}
