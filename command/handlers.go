// Package command exposes the payment operations as dispatchable
// command messages with their own validation, so hosts can route them
// through a message bus instead of calling the gateway directly.
package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-payments/core"
)

// PaymentService is the mutating surface the commands execute against.
type PaymentService interface {
	CreateOrder(ctx context.Context, req core.CreateOrderRequest) (core.OrderCheckout, error)
	VerifyOrder(ctx context.Context, orderID string) (core.OrderVerification, error)
	CreatePlan(ctx context.Context, req core.CreatePlanRequest) (core.Plan, error)
	CreateSubscription(ctx context.Context, req core.CreateSubscriptionRequest) (core.SubscriptionCheckout, error)
	VerifySubscription(ctx context.Context, subscriptionID string) (core.SubscriptionVerification, error)
	CancelSubscription(ctx context.Context, subscriptionID string, reason string) (core.SubscriptionCancellation, error)
	CreateCharge(ctx context.Context, req core.CreateChargeRequest) (core.ChargeCheckout, error)
	VerifyCharge(ctx context.Context, chargeCode string) (core.ChargeVerification, error)
}

type CreateOrderCommand struct {
	service PaymentService
}

func NewCreateOrderCommand(service PaymentService) *CreateOrderCommand {
	return &CreateOrderCommand{service: service}
}

func (c *CreateOrderCommand) Execute(ctx context.Context, msg CreateOrderMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: order service is required")
	}
	out, err := c.service.CreateOrder(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type VerifyOrderCommand struct {
	service PaymentService
}

func NewVerifyOrderCommand(service PaymentService) *VerifyOrderCommand {
	return &VerifyOrderCommand{service: service}
}

func (c *VerifyOrderCommand) Execute(ctx context.Context, msg VerifyOrderMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: order service is required")
	}
	out, err := c.service.VerifyOrder(ctx, msg.OrderID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreatePlanCommand struct {
	service PaymentService
}

func NewCreatePlanCommand(service PaymentService) *CreatePlanCommand {
	return &CreatePlanCommand{service: service}
}

func (c *CreatePlanCommand) Execute(ctx context.Context, msg CreatePlanMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: plan service is required")
	}
	out, err := c.service.CreatePlan(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreateSubscriptionCommand struct {
	service PaymentService
}

func NewCreateSubscriptionCommand(service PaymentService) *CreateSubscriptionCommand {
	return &CreateSubscriptionCommand{service: service}
}

func (c *CreateSubscriptionCommand) Execute(ctx context.Context, msg CreateSubscriptionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: subscription service is required")
	}
	out, err := c.service.CreateSubscription(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type VerifySubscriptionCommand struct {
	service PaymentService
}

func NewVerifySubscriptionCommand(service PaymentService) *VerifySubscriptionCommand {
	return &VerifySubscriptionCommand{service: service}
}

func (c *VerifySubscriptionCommand) Execute(ctx context.Context, msg VerifySubscriptionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: subscription service is required")
	}
	out, err := c.service.VerifySubscription(ctx, msg.SubscriptionID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CancelSubscriptionCommand struct {
	service PaymentService
}

func NewCancelSubscriptionCommand(service PaymentService) *CancelSubscriptionCommand {
	return &CancelSubscriptionCommand{service: service}
}

func (c *CancelSubscriptionCommand) Execute(ctx context.Context, msg CancelSubscriptionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: subscription service is required")
	}
	out, err := c.service.CancelSubscription(ctx, msg.SubscriptionID, msg.Reason)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreateChargeCommand struct {
	service PaymentService
}

func NewCreateChargeCommand(service PaymentService) *CreateChargeCommand {
	return &CreateChargeCommand{service: service}
}

func (c *CreateChargeCommand) Execute(ctx context.Context, msg CreateChargeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: charge service is required")
	}
	out, err := c.service.CreateCharge(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type VerifyChargeCommand struct {
	service PaymentService
}

func NewVerifyChargeCommand(service PaymentService) *VerifyChargeCommand {
	return &VerifyChargeCommand{service: service}
}

func (c *VerifyChargeCommand) Execute(ctx context.Context, msg VerifyChargeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: charge service is required")
	}
	out, err := c.service.VerifyCharge(ctx, msg.ChargeCode)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
