// Package services holds pure domain services that operate across aggregates.
//
// The package includes:
//   - ReceiptFormatter: renders an order and its items into a kitchen order
//     ticket (KOT) and a customer receipt, using a per-merchant Template
//   - ComputeTotals / ParseGrandTotal: the receipt arithmetic and its inverse
//
// Template selection matches the normalised merchant name against a small
// fixed set; unmatched merchants print with a generic template. Tax lines are
// fixed percentages of the subtotal and the grand total is rounded exactly once.
package services
