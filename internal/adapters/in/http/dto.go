package http

import (
	"time"

	"cafe/internal/adapters/out/printers"
	dispatch "cafe/internal/core/application/printing"
	"cafe/internal/core/application/reconcile"
	"cafe/internal/core/application/usecases/queries"
	"cafe/internal/core/domain/model/order"
)

type transitionRequest struct {
	Status string `json:"status"`
}

type assignStaffRequest struct {
	StaffID string `json:"staff_id"`
}

type reprintRequest struct {
	Kinds []string `json:"kinds"`
}

type newLineItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Instruction string `json:"instruction"`
}

type newOrderRequest struct {
	ID           string               `json:"id"`
	Number       string               `json:"number"`
	MerchantID   string               `json:"merchant_id"`
	Total        string               `json:"total"`
	PlacedAt     *time.Time           `json:"placed_at"`
	Channel      string               `json:"channel"`
	Location     string               `json:"location"`
	ContactName  string               `json:"contact_name"`
	ContactPhone string               `json:"contact_phone"`
	Items        []newLineItemRequest `json:"items"`
}

type createdOrderResponse struct {
	ID string `json:"id"`
}

type printerRequest struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Address       string `json:"address"`
	CredentialRef string `json:"credential_ref"`
	PaperWidth    int    `json:"paper_width"`
	Density       int    `json:"density"`
	AutoCut       bool   `json:"auto_cut"`
	Enabled       *bool  `json:"enabled"`
}

type printerProfileRequest struct {
	Name       string           `json:"name"`
	ManualOnly bool             `json:"manual_only"`
	Printers   []printerRequest `json:"printers"`
}

type orderResponse struct {
	ID              string    `json:"id"`
	Number          string    `json:"number"`
	MerchantID      string    `json:"merchant_id"`
	Status          string    `json:"status"`
	Total           string    `json:"total"`
	PlacedAt        time.Time `json:"placed_at"`
	StatusChangedAt time.Time `json:"status_changed_at"`
	Channel         string    `json:"channel"`
	Location        string    `json:"location,omitempty"`
	ContactName     string    `json:"contact_name,omitempty"`
	ContactPhone    string    `json:"contact_phone,omitempty"`
	StaffID         string    `json:"staff_id,omitempty"`
	PointsCredited  bool      `json:"points_credited"`
}

func toOrderResponse(s order.Snapshot) orderResponse {
	resp := orderResponse{
		ID:              s.ID.String(),
		Number:          s.Number,
		MerchantID:      s.MerchantID.String(),
		Status:          s.Status.String(),
		Total:           s.Total.StringFixed(2),
		PlacedAt:        s.PlacedAt,
		StatusChangedAt: s.StatusChangedAt,
		Channel:         s.Fulfillment.Channel.String(),
		Location:        s.Fulfillment.Location,
		ContactName:     s.Contact.Name,
		ContactPhone:    s.Contact.Phone,
		PointsCredited:  s.PointsCredited,
	}
	if s.StaffID != nil {
		resp.StaffID = s.StaffID.String()
	}
	return resp
}

type queueEntryResponse struct {
	ID              string    `json:"id"`
	Number          string    `json:"number"`
	Status          string    `json:"status"`
	Total           string    `json:"total"`
	PlacedAt        time.Time `json:"placed_at"`
	StatusChangedAt time.Time `json:"status_changed_at"`
	Channel         string    `json:"channel"`
	Location        string    `json:"location,omitempty"`
	ItemCount       int       `json:"item_count"`
}

func toQueueEntries(rows []queries.GetActiveOrdersQueryResponse) []queueEntryResponse {
	out := make([]queueEntryResponse, len(rows))
	for i, r := range rows {
		out[i] = queueEntryResponse{
			ID:              r.ID.String(),
			Number:          r.Number,
			Status:          r.Status.String(),
			Total:           r.Total.StringFixed(2),
			PlacedAt:        r.PlacedAt,
			StatusChangedAt: r.StatusChangedAt,
			Channel:         r.Channel.String(),
			Location:        r.Location,
			ItemCount:       r.ItemCount,
		}
	}
	return out
}

type attemptResponse struct {
	Transport  string `json:"transport"`
	PrinterID  string `json:"printer_id"`
	JobID      string `json:"job_id,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

type ticketResponse struct {
	Kind      string            `json:"kind"`
	Printed   bool              `json:"printed"`
	JobID     string            `json:"job_id,omitempty"`
	Transport string            `json:"transport,omitempty"`
	Error     string            `json:"error,omitempty"`
	Attempts  []attemptResponse `json:"attempts"`
}

type dispatchResponse struct {
	Outcome string           `json:"outcome"`
	OrderID string           `json:"order_id"`
	Error   string           `json:"error,omitempty"`
	Missing []string         `json:"missing,omitempty"`
	Tickets []ticketResponse `json:"tickets"`
}

func toDispatchResponse(r dispatch.Result) dispatchResponse {
	resp := dispatchResponse{
		Outcome: r.Outcome.String(),
		OrderID: r.OrderID.String(),
		Tickets: make([]ticketResponse, 0, len(r.Tickets)),
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	for _, kind := range r.Missing() {
		resp.Missing = append(resp.Missing, kind.String())
	}

	for _, t := range r.Tickets {
		tr := ticketResponse{
			Kind:     t.Kind.String(),
			Printed:  t.Printed,
			JobID:    string(t.JobID),
			Attempts: make([]attemptResponse, 0, len(t.Attempts)),
		}
		if t.Printed {
			tr.Transport = t.Transport.String()
		}
		if t.Err != nil {
			tr.Error = t.Err.Error()
		}
		for _, a := range t.Attempts {
			ar := attemptResponse{
				Transport:  a.Transport.String(),
				PrinterID:  a.PrinterID.String(),
				JobID:      string(a.JobID),
				DurationMS: a.Duration.Milliseconds(),
			}
			if a.Err != nil {
				ar.Error = a.Err.Error()
			}
			tr.Attempts = append(tr.Attempts, ar)
		}
		resp.Tickets = append(resp.Tickets, tr)
	}
	return resp
}

type manualPrintResponse struct {
	JobID       string    `json:"job_id"`
	MerchantID  string    `json:"merchant_id"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Kind        string    `json:"kind"`
	Text        string    `json:"text"`
	QueuedAt    time.Time `json:"queued_at"`
}

func toManualPrintResponse(j printers.ManualJob) manualPrintResponse {
	return manualPrintResponse{
		JobID:       string(j.ID),
		MerchantID:  j.MerchantID.String(),
		OrderID:     j.OrderID.String(),
		OrderNumber: j.OrderNumber,
		Kind:        j.Kind.String(),
		Text:        j.Text,
		QueuedAt:    j.QueuedAt,
	}
}

type factResponse struct {
	Kind            string        `json:"kind"`
	OrderID         string        `json:"order_id"`
	MerchantID      string        `json:"merchant_id"`
	Status          string        `json:"status"`
	StatusChangedAt time.Time     `json:"status_changed_at"`
	CreatedAt       time.Time     `json:"created_at"`
	Source          string        `json:"source"`
	Order           orderResponse `json:"order"`
}

func toFactResponse(f reconcile.ChangeFact) factResponse {
	return factResponse{
		Kind:            f.Kind.String(),
		OrderID:         f.OrderID.String(),
		MerchantID:      f.MerchantID.String(),
		Status:          f.Status.String(),
		StatusChangedAt: f.StatusChangedAt,
		CreatedAt:       f.CreatedAt,
		Source:          f.Source.String(),
		Order:           toOrderResponse(f.Order),
	}
}
