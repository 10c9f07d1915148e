// Package jobs provides scheduled background tasks for the cafe back office.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3.
//
// # Available Jobs
//
// 1. OrderPollJob - Re-reads the orders of every observed merchant (default every 3s)
// so that changes the push channel missed still become facts
// 2. LedgerEvictionJob - Runs every minute to drop print ledger records and finished
// orders older than the retention window
//
// # Usage
//
//	jobManager := jobs.NewJobManager(reconciler, 3*time.Second, ledger, coordinator, 24*time.Hour, logger)
//
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Error Handling
//
// - Poll failures are logged at Warn; the next tick retries
// - Overlapping polls are skipped rather than queued
// - Failed job starts will stop any already running jobs
package jobs
