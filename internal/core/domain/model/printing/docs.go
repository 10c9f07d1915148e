// Package printing models merchant printer registrations and rendered tickets.
//
// A MerchantProfile owns zero or more PrinterConfig values; Chain orders the
// enabled ones by TransportKind priority:
//
//	LocalNetwork (0) -> DirectSerial (1) -> CloudAPI (2) -> ManualFallback (3)
//
// Tickets are plain fixed-width text; encoding for a particular printer is the
// transport's job.
package printing
