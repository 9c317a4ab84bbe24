// Package core holds the payment gateway's shared machinery: domain
// types, provider contracts, the metadata store, status normalization,
// and the lifecycle event dispatcher. Provider adapters build on this
// package; the root payments package wires everything together.
package core
