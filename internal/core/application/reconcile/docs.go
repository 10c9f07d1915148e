// Package reconcile turns the two ways order changes reach this process into
// one stream of facts.
//
// Push notifications are fast but may be lost or duplicated; the periodic
// poll is slow but complete. Each observed merchant gets a feed holding the
// last known snapshot of its orders. Both sources are merged there and every
// (order id, status, status-changed timestamp) key is emitted once. Facts of
// one poll cycle are emitted oldest order first; nothing orders push facts
// against poll facts, so consumers treat facts as assertions, not as a log.
//
// Push registrations go through a Registry, which keeps one registration per
// (table, filter) and reference counts the parties using it.
package reconcile
