package classify

// price is a per-million-token rate pair for one model.
type price struct {
	InputPer1M  float64
	OutputPer1M float64
}

// pricingTable maps a model tag to its USD-per-million-token rates. Rates
// are approximate list prices at time of writing; an unknown model tag
// falls back to defaultPrice.
var pricingTable = map[string]price{
	"claude-opus-4-5":    {InputPer1M: 15.00, OutputPer1M: 75.00},
	"claude-sonnet-4-5":  {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-haiku-4-5":   {InputPer1M: 1.00, OutputPer1M: 5.00},
	"gpt-4o":             {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-mini":        {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4-turbo":        {InputPer1M: 10.00, OutputPer1M: 30.00},
	"gpt-3.5-turbo":      {InputPer1M: 0.50, OutputPer1M: 1.50},
	"o1":                 {InputPer1M: 15.00, OutputPer1M: 60.00},
	"o1-mini":            {InputPer1M: 1.10, OutputPer1M: 4.40},
}

// defaultPrice is used when modelTag has no entry in pricingTable.
var defaultPrice = price{InputPer1M: 3.00, OutputPer1M: 15.00}

func costUSD(modelTag string, inputTokens, outputTokens int) float64 {
	p, ok := pricingTable[modelTag]
	if !ok {
		p = defaultPrice
	}
	return float64(inputTokens)/1e6*p.InputPer1M + float64(outputTokens)/1e6*p.OutputPer1M
}

// EstimateCostUSD gives a run preview its cost estimate without making a
// call: it assumes the configured average token count split evenly between
// input and output.
func EstimateCostUSD(modelTag string, avgTokensPerItem, items int) float64 {
	half := avgTokensPerItem / 2
	return costUSD(modelTag, half*items, half*items)
}
