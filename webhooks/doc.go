// Package webhooks processes inbound provider deliveries: signature
// verification before any provider call, claim-based dedupe so a
// delivery is handled once even when the provider retries, and
// bounded retry scheduling for handler failures.
package webhooks
