package paypal

// Wire types for the subset of the PayPal REST API this adapter uses.

type amountPayload struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnitPayload struct {
	CustomID string        `json:"custom_id,omitempty"`
	Amount   amountPayload `json:"amount"`
}

type applicationContextPayload struct {
	BrandName string `json:"brand_name,omitempty"`
	ReturnURL string `json:"return_url,omitempty"`
	CancelURL string `json:"cancel_url,omitempty"`
}

type orderCreatePayload struct {
	Intent             string                    `json:"intent"`
	PurchaseUnits      []purchaseUnitPayload     `json:"purchase_units"`
	ApplicationContext applicationContextPayload `json:"application_context"`
}

type linkResource struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

type orderResource struct {
	ID            string                `json:"id"`
	Status        string                `json:"status"`
	PurchaseUnits []purchaseUnitPayload `json:"purchase_units"`
	Links         []linkResource        `json:"links"`
}

type productCreatePayload struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type productResource struct {
	ID string `json:"id"`
}

type billingFrequency struct {
	IntervalUnit  string `json:"interval_unit"`
	IntervalCount int    `json:"interval_count"`
}

type pricingScheme struct {
	FixedPrice amountPayload `json:"fixed_price"`
}

type billingCycle struct {
	Frequency     billingFrequency `json:"frequency"`
	TenureType    string           `json:"tenure_type"`
	Sequence      int              `json:"sequence"`
	TotalCycles   int              `json:"total_cycles"`
	PricingScheme pricingScheme    `json:"pricing_scheme"`
}

type paymentPreferences struct {
	AutoBillOutstanding bool `json:"auto_bill_outstanding"`
}

type planCreatePayload struct {
	ProductID          string             `json:"product_id"`
	Name               string             `json:"name"`
	BillingCycles      []billingCycle     `json:"billing_cycles"`
	PaymentPreferences paymentPreferences `json:"payment_preferences"`
}

type planResource struct {
	ID string `json:"id"`
}

type subscriptionCreatePayload struct {
	PlanID             string                    `json:"plan_id"`
	CustomID           string                    `json:"custom_id,omitempty"`
	ApplicationContext applicationContextPayload `json:"application_context"`
}

type subscriptionResource struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	PlanID   string         `json:"plan_id"`
	CustomID string         `json:"custom_id"`
	Links    []linkResource `json:"links"`
}

type cancelSubscriptionPayload struct {
	Reason string `json:"reason"`
}
