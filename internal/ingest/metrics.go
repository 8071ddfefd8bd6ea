package ingest

// NetPremium computes the net premium of a quote from ask and bid prices and
// sizes, assuming 100 shares per contract. Missing factors are treated as 0.
func NetPremium(askPrice, bidPrice, askSize, bidSize *float64) float64 {
	value := func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	}

	askPremium := value(askPrice) * value(askSize) * 100
	bidPremium := value(bidPrice) * value(bidSize) * 100

	return askPremium - bidPremium
}
