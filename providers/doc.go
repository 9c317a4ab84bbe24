// Package providers groups the payment provider adapters. Each adapter
// translates one provider's REST API into the common lifecycle
// contract: create operations cache transaction metadata and emit a
// created event, verify operations classify the provider's raw status,
// dispatch exactly one lifecycle event, and purge cached metadata.
package providers
