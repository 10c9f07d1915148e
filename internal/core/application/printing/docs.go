// Package printing is the print dispatch engine.
//
// Engine turns an order into its two tickets (kitchen ticket and customer
// receipt) and walks the merchant's printer chain for each of them:
//
//	local network -> direct serial -> cloud API -> manual fallback
//
// Every transport send runs under its own timeout, so a hung printer costs
// at most one timeout before the next transport is tried. Automatic dispatch
// is idempotent per order id through a ports.PrintLedger reservation; a
// Reprint is always allowed.
//
// Usage:
//
//	cache := printing.NewConfigCache(profileRepo)
//	engine := printing.NewEngine(cache, ledger, orderRepo, transports, logger,
//	    printing.WithStaleAfter(5*time.Minute),
//	    printing.WithStatusSource(coordinator),
//	)
//
//	res := engine.Dispatch(ctx, o.Snapshot(), items)
//	if res.Outcome == printing.Partial {
//	    res = engine.Reprint(ctx, o.ID(), res.Missing()...)
//	}
package printing
