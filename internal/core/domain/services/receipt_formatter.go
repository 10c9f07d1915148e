package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/core/domain/model/printing"
)

var (
	// ErrNoLineItems is returned when an order without items is rendered.
	ErrNoLineItems = errors.New("order has no line items")

	// ErrGrandTotalNotFound is returned by ParseGrandTotal when the text has no total line.
	ErrGrandTotalNotFound = errors.New("grand total line not found")
)

const (
	grandTotalLabel = "GRAND TOTAL"
	defaultCurrency = "Rs."
	timeLayout      = "02/01/06 15:04"
)

// TaxAmount is one computed tax component.
type TaxAmount struct {
	Label  string
	Amount kernel.Money
}

// Totals is the arithmetic of a receipt. Subtotal and Taxes are exact;
// GrandTotal is their sum rounded once.
type Totals struct {
	Subtotal   kernel.Money
	Taxes      []TaxAmount
	GrandTotal kernel.Money
}

// ComputeTotals applies tmpl's tax lines to the subtotal of items and rounds
// the grand total to tmpl.RoundPlaces. Nothing is rounded before that point.
func ComputeTotals(items []order.LineItem, tmpl Template) Totals {
	subtotal := order.Subtotal(items)

	sum := subtotal
	taxes := make([]TaxAmount, 0, len(tmpl.Taxes))
	for _, tax := range tmpl.Taxes {
		amount := subtotal.Percent(tax.Percent)
		taxes = append(taxes, TaxAmount{Label: tax.Label, Amount: amount})
		sum = sum.Add(amount)
	}

	return Totals{
		Subtotal:   subtotal,
		Taxes:      taxes,
		GrandTotal: sum.Round(tmpl.RoundPlaces),
	}
}

// RenderedTickets holds the two tickets of one dispatch.
type RenderedTickets struct {
	KOT     printing.Ticket
	Receipt printing.Ticket
}

// Get returns the ticket of the given kind.
func (r RenderedTickets) Get(kind printing.TicketKind) (printing.Ticket, bool) {
	switch kind {
	case printing.KOT:
		return r.KOT, true
	case printing.Receipt:
		return r.Receipt, true
	case printing.UnknownTicket:
	}
	return printing.Ticket{}, false
}

// ReceiptFormatter renders orders into kitchen tickets and customer receipts.
//
// Render is a pure function of its inputs: the same order, items and profile
// always produce the same lines. Times are shown in the formatter's location.
//
// Example usage:
//
//	formatter := services.NewReceiptFormatter()
//	tickets, err := formatter.Render(o.Snapshot(), items, profile)
//	if err != nil {
//	    return err
//	}
//	fmt.Print(tickets.Receipt.Text())
type ReceiptFormatter struct {
	location *time.Location
	currency string
}

// FormatterOption customises a ReceiptFormatter.
type FormatterOption func(*ReceiptFormatter)

// WithLocation sets the time zone used for printed timestamps.
func WithLocation(loc *time.Location) FormatterOption {
	return func(f *ReceiptFormatter) {
		if loc != nil {
			f.location = loc
		}
	}
}

// WithCurrency sets the currency symbol used by templates that do not define one.
func WithCurrency(symbol string) FormatterOption {
	return func(f *ReceiptFormatter) {
		if s := strings.TrimSpace(symbol); s != "" {
			f.currency = s
		}
	}
}

// NewReceiptFormatter creates a formatter printing Indian Standard Time and "Rs." by default.
func NewReceiptFormatter(opts ...FormatterOption) ReceiptFormatter {
	f := ReceiptFormatter{
		location: time.FixedZone("IST", 5*60*60+30*60),
		currency: defaultCurrency,
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Render produces the KOT and the receipt for an order.
//
// Parameters:
//   - o: order snapshot
//   - items: the order's line items, at least one
//   - profile: merchant profile; selects the template and the layout width
//
// Returns:
//   - RenderedTickets with both tickets
//   - ErrNoLineItems if items is empty, or a validation error for a literal item
func (f ReceiptFormatter) Render(o order.Snapshot, items []order.LineItem, profile printing.MerchantProfile) (RenderedTickets, error) {
	if len(items) == 0 {
		return RenderedTickets{}, ErrNoLineItems
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return RenderedTickets{}, err
		}
	}

	tmpl := TemplateFor(profile.Name())
	columns := tmpl.Columns
	if columns == 0 {
		columns = profile.Columns()
	}

	return RenderedTickets{
		KOT:     f.renderKOT(o, items, columns),
		Receipt: f.renderReceipt(o, items, tmpl, columns),
	}, nil
}

func (f ReceiptFormatter) renderKOT(o order.Snapshot, items []order.LineItem, columns int) printing.Ticket {
	w := newLineWriter(columns)

	w.center("KITCHEN ORDER TICKET")
	w.rule('=')
	w.pair("Order #"+o.Number, f.stamp(o.PlacedAt))
	w.wrap(fulfillmentLine(o.Fulfillment), "")
	w.rule('-')

	count := 0
	for _, item := range items {
		count += item.Quantity()
		w.wrap(fmt.Sprintf("%d x %s", item.Quantity(), item.Name()), "    ")
		if item.Instruction() != "" {
			w.wrap("  >> "+item.Instruction(), "     ")
		}
	}

	w.rule('-')
	w.pair("Items", strconv.Itoa(count))

	return printing.Ticket{
		Kind:        printing.KOT,
		OrderID:     o.ID,
		OrderNumber: o.Number,
		MerchantID:  o.MerchantID,
		Columns:     columns,
		Lines:       w.lines,
	}
}

func (f ReceiptFormatter) renderReceipt(o order.Snapshot, items []order.LineItem, tmpl Template, columns int) printing.Ticket {
	w := newLineWriter(columns)
	totals := ComputeTotals(items, tmpl)

	currency := tmpl.Currency
	if currency == "" {
		currency = f.currency
	}

	for _, line := range tmpl.Header {
		w.center(line)
	}
	w.rule('=')
	w.pair("Order #"+o.Number, f.stamp(o.PlacedAt))
	w.wrap(fulfillmentLine(o.Fulfillment), "")
	if o.Contact.Name != "" || o.Contact.Phone != "" {
		w.wrap(strings.TrimSpace(o.Contact.Name+" "+o.Contact.Phone), "")
	}
	w.rule('-')

	for _, item := range items {
		w.wrap(item.Name(), "  ")
		w.pair(fmt.Sprintf("  %d x %s", item.Quantity(), item.UnitPrice().StringFixed(2)), item.LineTotal().StringFixed(2))
	}

	w.rule('-')
	w.pair("Subtotal", totals.Subtotal.StringFixed(2))
	for _, tax := range totals.Taxes {
		w.pair(tax.Label, tax.Amount.StringFixed(2))
	}
	w.rule('=')
	w.pair(grandTotalLabel, currency+" "+totals.GrandTotal.StringFixed(2))
	w.rule('=')

	for _, line := range tmpl.Footer {
		w.center(line)
	}

	grand := totals.GrandTotal
	return printing.Ticket{
		Kind:        printing.Receipt,
		OrderID:     o.ID,
		OrderNumber: o.Number,
		MerchantID:  o.MerchantID,
		Columns:     columns,
		Lines:       w.lines,
		GrandTotal:  &grand,
	}
}

func (f ReceiptFormatter) stamp(t time.Time) string {
	return t.In(f.location).Format(timeLayout)
}

func fulfillmentLine(fl order.Fulfillment) string {
	if fl.Location == "" {
		return fl.Channel.Label()
	}
	return fl.Channel.Label() + ": " + fl.Location
}

// ParseGrandTotal finds the grand total line in rendered receipt text and
// returns its amount.
func ParseGrandTotal(text string) (kernel.Money, error) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, grandTotalLabel) {
			continue
		}
		fields := strings.Fields(trimmed)
		return kernel.MoneyFromString(fields[len(fields)-1])
	}
	return kernel.Money{}, ErrGrandTotalNotFound
}

// lineWriter accumulates fixed-width lines.
type lineWriter struct {
	width int
	lines []string
}

func newLineWriter(width int) *lineWriter {
	return &lineWriter{width: width}
}

func (w *lineWriter) rule(ch rune) {
	w.lines = append(w.lines, strings.Repeat(string(ch), w.width))
}

func (w *lineWriter) center(s string) {
	s = truncate(s, w.width)
	pad := (w.width - utf8.RuneCountInString(s)) / 2
	w.lines = append(w.lines, strings.Repeat(" ", pad)+s)
}

// pair writes left and right on one line, right aligned to the width.
// The left text is truncated when both do not fit.
func (w *lineWriter) pair(left, right string) {
	space := w.width - utf8.RuneCountInString(right) - 1
	if space < 0 {
		space = 0
	}
	left = truncate(left, space)
	gap := w.width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	w.lines = append(w.lines, left+strings.Repeat(" ", gap)+right)
}

// wrap breaks s on spaces into lines of at most width runes; continuation
// lines start with indent.
func (w *lineWriter) wrap(s, indent string) {
	words := strings.Fields(s)
	if len(words) == 0 {
		return
	}
	if strings.HasPrefix(s, " ") {
		lead := s[:len(s)-len(strings.TrimLeft(s, " "))]
		words[0] = lead + words[0]
	}

	current := ""
	for _, word := range words {
		switch {
		case current == "":
			current = word
		case utf8.RuneCountInString(current)+1+utf8.RuneCountInString(word) <= w.width:
			current += " " + word
		default:
			w.lines = append(w.lines, truncate(current, w.width))
			current = indent + word
		}
	}
	w.lines = append(w.lines, truncate(current, w.width))
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width])
}
