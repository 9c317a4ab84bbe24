package coinbase

// Wire types for the subset of the Coinbase Commerce API this adapter
// uses. List and retrieve responses wrap the resource in a data field.

type localPricePayload struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type chargeCreatePayload struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	PricingType string            `json:"pricing_type"`
	LocalPrice  localPricePayload `json:"local_price"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	CancelURL   string            `json:"cancel_url,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

type timelineEntry struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

type chargePricing struct {
	Local localPricePayload `json:"local"`
}

type chargeResource struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	HostedURL string          `json:"hosted_url"`
	Pricing   chargePricing   `json:"pricing"`
	Timeline  []timelineEntry `json:"timeline"`
	Metadata  map[string]any  `json:"metadata"`
}

type chargeEnvelope struct {
	Data chargeResource `json:"data"`
}
