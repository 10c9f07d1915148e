// Package order provides the Order aggregate and its status workflow for the
// cafe order core.
//
// The package includes:
//   - Order: aggregate root owning identity, status, timestamps and the points-credited flag
//   - Status: the lifecycle state machine received -> confirmed -> preparing -> on_the_way -> completed,
//     with cancelled reachable from every non-terminal state
//   - LineItem: a denormalised catalog snapshot with quantity and unit price
//   - Fulfillment and Contact: delivery channel and customer snapshot
//
// Transitions are applied through Order.Transition, which returns an Undo so
// callers can apply state optimistically and compensate when the
// authoritative write fails.
package order
