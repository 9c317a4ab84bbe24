package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-payments/core"
)

const (
	TypeCreateOrder        = "payments.command.order.create"
	TypeVerifyOrder        = "payments.command.order.verify"
	TypeCreatePlan         = "payments.command.plan.create"
	TypeCreateSubscription = "payments.command.subscription.create"
	TypeVerifySubscription = "payments.command.subscription.verify"
	TypeCancelSubscription = "payments.command.subscription.cancel"
	TypeCreateCharge       = "payments.command.charge.create"
	TypeVerifyCharge       = "payments.command.charge.verify"
)

type CreateOrderMessage struct {
	Request core.CreateOrderRequest
}

func (CreateOrderMessage) Type() string { return TypeCreateOrder }

func (m CreateOrderMessage) Validate() error {
	if strings.TrimSpace(m.Request.Title) == "" {
		return fmt.Errorf("command: order title is required")
	}
	if m.Request.Price <= 0 {
		return fmt.Errorf("command: order price is required")
	}
	if strings.TrimSpace(m.Request.ReturnURL) == "" {
		return fmt.Errorf("command: return url is required")
	}
	if strings.TrimSpace(m.Request.CancelURL) == "" {
		return fmt.Errorf("command: cancel url is required")
	}
	return nil
}

type VerifyOrderMessage struct {
	OrderID string
}

func (VerifyOrderMessage) Type() string { return TypeVerifyOrder }

func (m VerifyOrderMessage) Validate() error {
	if strings.TrimSpace(m.OrderID) == "" {
		return fmt.Errorf("command: order id is required")
	}
	return nil
}

type CreatePlanMessage struct {
	Request core.CreatePlanRequest
}

func (CreatePlanMessage) Type() string { return TypeCreatePlan }

func (m CreatePlanMessage) Validate() error {
	if strings.TrimSpace(m.Request.Name) == "" {
		return fmt.Errorf("command: plan name is required")
	}
	if m.Request.Price <= 0 {
		return fmt.Errorf("command: plan price is required")
	}
	if strings.TrimSpace(m.Request.Interval) == "" {
		return fmt.Errorf("command: plan interval is required")
	}
	return nil
}

type CreateSubscriptionMessage struct {
	Request core.CreateSubscriptionRequest
}

func (CreateSubscriptionMessage) Type() string { return TypeCreateSubscription }

func (m CreateSubscriptionMessage) Validate() error {
	if strings.TrimSpace(m.Request.PlanID) == "" {
		return fmt.Errorf("command: plan id is required")
	}
	if strings.TrimSpace(m.Request.ReturnURL) == "" {
		return fmt.Errorf("command: return url is required")
	}
	if strings.TrimSpace(m.Request.CancelURL) == "" {
		return fmt.Errorf("command: cancel url is required")
	}
	return nil
}

type VerifySubscriptionMessage struct {
	SubscriptionID string
}

func (VerifySubscriptionMessage) Type() string { return TypeVerifySubscription }

func (m VerifySubscriptionMessage) Validate() error {
	if strings.TrimSpace(m.SubscriptionID) == "" {
		return fmt.Errorf("command: subscription id is required")
	}
	return nil
}

type CancelSubscriptionMessage struct {
	SubscriptionID string
	Reason         string
}

func (CancelSubscriptionMessage) Type() string { return TypeCancelSubscription }

func (m CancelSubscriptionMessage) Validate() error {
	if strings.TrimSpace(m.SubscriptionID) == "" {
		return fmt.Errorf("command: subscription id is required")
	}
	return nil
}

type CreateChargeMessage struct {
	Request core.CreateChargeRequest
}

func (CreateChargeMessage) Type() string { return TypeCreateCharge }

func (m CreateChargeMessage) Validate() error {
	if strings.TrimSpace(m.Request.Title) == "" {
		return fmt.Errorf("command: charge title is required")
	}
	if m.Request.Price <= 0 {
		return fmt.Errorf("command: charge price is required")
	}
	return nil
}

type VerifyChargeMessage struct {
	ChargeCode string
}

func (VerifyChargeMessage) Type() string { return TypeVerifyCharge }

func (m VerifyChargeMessage) Validate() error {
	if strings.TrimSpace(m.ChargeCode) == "" {
		return fmt.Errorf("command: charge code is required")
	}
	return nil
}
