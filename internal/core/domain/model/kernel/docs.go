// Package kernel provides core domain primitives shared by the order and printing models.
//
// The package includes:
//   - UUID: A value object for unique identifiers with validation and comparison capabilities
//   - Money: A non-negative decimal amount used for prices, taxes and totals
//
// These primitives are immutable and safe for concurrent use.
package kernel
