package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateOrderMessage]        = (*CreateOrderCommand)(nil)
	_ gocmd.Commander[VerifyOrderMessage]        = (*VerifyOrderCommand)(nil)
	_ gocmd.Commander[CreatePlanMessage]         = (*CreatePlanCommand)(nil)
	_ gocmd.Commander[CreateSubscriptionMessage] = (*CreateSubscriptionCommand)(nil)
	_ gocmd.Commander[VerifySubscriptionMessage] = (*VerifySubscriptionCommand)(nil)
	_ gocmd.Commander[CancelSubscriptionMessage] = (*CancelSubscriptionCommand)(nil)
	_ gocmd.Commander[CreateChargeMessage]       = (*CreateChargeCommand)(nil)
	_ gocmd.Commander[VerifyChargeMessage]       = (*VerifyChargeCommand)(nil)
)
