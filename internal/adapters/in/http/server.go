// Package http is the staff-facing echo API over the lifecycle coordinator,
// the reconciled change feed and the print dispatch engine.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"cafe/internal/adapters/out/printers"
	dispatch "cafe/internal/core/application/printing"
	"cafe/internal/core/application/reconcile"
	"cafe/internal/core/application/usecases/commands"
	"cafe/internal/core/application/usecases/queries"
	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/core/domain/model/printing"
	"cafe/internal/core/ports"
	"cafe/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

type TransitionRequester interface {
	RequestTransition(ctx context.Context, cmd commands.RequestTransitionCommand) (order.Snapshot, error)
}

type FactSource interface {
	Observe(ctx context.Context, filter reconcile.MerchantFilter) (*reconcile.Subscription, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, o order.Snapshot, items []order.LineItem) dispatch.Result
}

type CreateOrderHandler interface {
	Handle(ctx context.Context, cmd commands.CreateOrderCommand) error
}

type AssignStaffHandler interface {
	Handle(ctx context.Context, cmd commands.AssignStaffCommand) error
}

type SavePrinterProfileHandler interface {
	Handle(ctx context.Context, cmd commands.SavePrinterProfileCommand) error
}

type ReprintHandler interface {
	Handle(ctx context.Context, cmd commands.ReprintCommand) (dispatch.Result, error)
}

type ActiveOrdersHandler interface {
	Handle(ctx context.Context, query queries.GetActiveOrdersQuery) ([]queries.GetActiveOrdersQueryResponse, error)
}

type ManualPrints interface {
	Pending(merchantID kernel.UUID) []printers.ManualJob
	Confirm(id ports.JobID) (printers.ManualJob, error)
}

// Dependencies are the use cases the server exposes.
type Dependencies struct {
	Transitions  TransitionRequester
	Facts        FactSource
	Orders       ports.OrderReader
	Dispatcher   Dispatcher
	CreateOrder  CreateOrderHandler
	AssignStaff  AssignStaffHandler
	SaveProfile  SavePrinterProfileHandler
	Reprint      ReprintHandler
	ActiveOrders ActiveOrdersHandler
	Profiles     commands.ProfileInvalidator
	ManualPrints ManualPrints
}

// Server translates HTTP requests into commands and queries.
type Server struct {
	deps      Dependencies
	logger    *slog.Logger
	now       func() time.Time
	heartbeat time.Duration
}

type ServerOption func(*Server)

// WithHeartbeat sets the interval of keep-alive comments on fact streams.
func WithHeartbeat(d time.Duration) ServerOption {
	return func(s *Server) { s.heartbeat = d }
}

func NewServer(deps Dependencies, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		deps:      deps,
		logger:    logger.With("component", "http"),
		now:       time.Now,
		heartbeat: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register mounts every route on e. validator may be nil.
func (s *Server) Register(e *echo.Echo, validator echo.MiddlewareFunc) {
	e.GET("/health", s.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/v1")
	if validator != nil {
		api.Use(validator)
	}

	api.POST("/orders", s.CreateOrder)
	api.POST("/orders/:orderId/transitions", s.RequestTransition)
	api.PUT("/orders/:orderId/staff", s.AssignStaff)
	api.POST("/orders/:orderId/print", s.PrintOrder)
	api.POST("/orders/:orderId/reprint", s.ReprintOrder)

	api.GET("/merchants/:merchantId/orders", s.GetActiveOrders)
	api.GET("/merchants/:merchantId/facts", s.StreamFacts)
	api.PUT("/merchants/:merchantId/printer-config", s.SavePrinterConfig)
	api.POST("/merchants/:merchantId/printer-config/invalidate", s.InvalidatePrinterConfig)
	api.GET("/merchants/:merchantId/manual-prints", s.ListManualPrints)
	api.POST("/manual-prints/:jobId/confirm", s.ConfirmManualPrint)
}

// Health handles GET /health.
func (s *Server) Health(c echo.Context) error {
	return c.String(http.StatusOK, "Healthy")
}

// CreateOrder handles POST /api/v1/orders.
func (s *Server) CreateOrder(c echo.Context) error {
	var body newOrderRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}

	cmd, err := newCreateOrderCommand(body, s.now())
	if err != nil {
		return writeError(c, err)
	}

	if err := s.deps.CreateOrder.Handle(c.Request().Context(), cmd); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, createdOrderResponse{ID: cmd.OrderID().String()})
}

func newCreateOrderCommand(body newOrderRequest, now time.Time) (commands.CreateOrderCommand, error) {
	orderID := kernel.NewUUID()
	if body.ID != "" {
		id, err := kernel.UUIDFromString(body.ID)
		if err != nil {
			return commands.CreateOrderCommand{}, errs.NewValueIsInvalidErrorWithCause("id", err)
		}
		orderID = id
	}

	merchantID, err := kernel.UUIDFromString(body.MerchantID)
	if err != nil {
		return commands.CreateOrderCommand{}, errs.NewValueIsInvalidErrorWithCause("merchant_id", err)
	}
	total, err := kernel.MoneyFromString(body.Total)
	if err != nil {
		return commands.CreateOrderCommand{}, err
	}
	channel, err := order.ParseChannel(body.Channel)
	if err != nil {
		return commands.CreateOrderCommand{}, err
	}

	placedAt := now
	if body.PlacedAt != nil {
		placedAt = *body.PlacedAt
	}

	items := make([]order.LineItem, 0, len(body.Items))
	var errList []error
	for _, item := range body.Items {
		price, err := kernel.MoneyFromString(item.UnitPrice)
		if err != nil {
			errList = append(errList, err)
			continue
		}
		li, err := order.NewLineItem(item.Name, item.Description, item.Quantity, price, item.Instruction)
		if err != nil {
			errList = append(errList, err)
			continue
		}
		items = append(items, li)
	}
	if err := errors.Join(errList...); err != nil {
		return commands.CreateOrderCommand{}, err
	}

	return commands.NewCreateOrderCommand(
		orderID,
		body.Number,
		merchantID,
		total,
		placedAt,
		order.Fulfillment{Channel: channel, Location: body.Location},
		order.Contact{Name: body.ContactName, Phone: body.ContactPhone},
		items,
	)
}

// RequestTransition handles POST /api/v1/orders/{orderId}/transitions.
func (s *Server) RequestTransition(c echo.Context) error {
	orderID, err := pathUUID(c, "orderId")
	if err != nil {
		return writeError(c, err)
	}

	var body transitionRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	target, err := order.ParseStatus(body.Status)
	if err != nil {
		return writeError(c, err)
	}

	cmd, err := commands.NewRequestTransitionCommand(orderID, target, s.now())
	if err != nil {
		return writeError(c, err)
	}

	snapshot, err := s.deps.Transitions.RequestTransition(c.Request().Context(), cmd)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(snapshot))
}

// AssignStaff handles PUT /api/v1/orders/{orderId}/staff.
func (s *Server) AssignStaff(c echo.Context) error {
	orderID, err := pathUUID(c, "orderId")
	if err != nil {
		return writeError(c, err)
	}

	var body assignStaffRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	staffID, err := kernel.UUIDFromString(body.StaffID)
	if err != nil {
		return badRequest(c, "Invalid staff id: "+err.Error())
	}

	cmd, err := commands.NewAssignStaffCommand(orderID, staffID)
	if err != nil {
		return writeError(c, err)
	}
	if err := s.deps.AssignStaff.Handle(c.Request().Context(), cmd); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PrintOrder handles POST /api/v1/orders/{orderId}/print: a guarded dispatch
// of a recorded order, for example after a transport outage.
func (s *Server) PrintOrder(c echo.Context) error {
	orderID, err := pathUUID(c, "orderId")
	if err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()

	o, err := s.deps.Orders.Get(ctx, orderID)
	if err != nil {
		return writeError(c, err)
	}
	items, err := s.deps.Orders.GetItems(ctx, orderID)
	if err != nil {
		return writeError(c, err)
	}

	return writeResult(c, s.deps.Dispatcher.Dispatch(ctx, o.Snapshot(), items))
}

// ReprintOrder handles POST /api/v1/orders/{orderId}/reprint.
func (s *Server) ReprintOrder(c echo.Context) error {
	orderID, err := pathUUID(c, "orderId")
	if err != nil {
		return writeError(c, err)
	}

	var body reprintRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&body); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	cmd, err := commands.NewReprintCommand(orderID, body.Kinds...)
	if err != nil {
		return writeError(c, err)
	}
	result, err := s.deps.Reprint.Handle(c.Request().Context(), cmd)
	if err != nil {
		return writeError(c, err)
	}
	return writeResult(c, result)
}

// writeResult answers 200 for every verdict the engine reached, 404 when the
// order is unknown and 502 when dispatch could not run.
func writeResult(c echo.Context, result dispatch.Result) error {
	if result.Outcome == dispatch.Failed {
		code := http.StatusBadGateway
		if errors.Is(result.Err, errs.ErrObjectNotFound) {
			code = http.StatusNotFound
		}
		return c.JSON(code, toDispatchResponse(result))
	}
	return c.JSON(http.StatusOK, toDispatchResponse(result))
}

// GetActiveOrders handles GET /api/v1/merchants/{merchantId}/orders.
func (s *Server) GetActiveOrders(c echo.Context) error {
	merchantID, err := pathUUID(c, "merchantId")
	if err != nil {
		return writeError(c, err)
	}
	statuses, err := queryStatuses(c)
	if err != nil {
		return writeError(c, err)
	}

	query, err := queries.NewGetActiveOrdersQuery(merchantID, statuses...)
	if err != nil {
		return writeError(c, err)
	}
	rows, err := s.deps.ActiveOrders.Handle(c.Request().Context(), query)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to retrieve orders",
		})
	}
	return c.JSON(http.StatusOK, toQueueEntries(rows))
}

// SavePrinterConfig handles PUT /api/v1/merchants/{merchantId}/printer-config.
func (s *Server) SavePrinterConfig(c echo.Context) error {
	merchantID, err := pathUUID(c, "merchantId")
	if err != nil {
		return writeError(c, err)
	}

	var body printerProfileRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}

	profile, err := toMerchantProfile(merchantID, body)
	if err != nil {
		return writeError(c, err)
	}
	cmd, err := commands.NewSavePrinterProfileCommand(profile)
	if err != nil {
		return writeError(c, err)
	}
	if err := s.deps.SaveProfile.Handle(c.Request().Context(), cmd); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func toMerchantProfile(merchantID kernel.UUID, body printerProfileRequest) (printing.MerchantProfile, error) {
	configs := make([]printing.PrinterConfig, 0, len(body.Printers))
	var errList []error
	for _, p := range body.Printers {
		cfg, err := toPrinterConfig(p)
		if err != nil {
			errList = append(errList, err)
			continue
		}
		configs = append(configs, cfg)
	}
	if err := errors.Join(errList...); err != nil {
		return printing.MerchantProfile{}, err
	}
	return printing.NewMerchantProfile(merchantID, body.Name, body.ManualOnly, configs)
}

func toPrinterConfig(p printerRequest) (printing.PrinterConfig, error) {
	id := kernel.NewUUID()
	if p.ID != "" {
		parsed, err := kernel.UUIDFromString(p.ID)
		if err != nil {
			return printing.PrinterConfig{}, errs.NewValueIsInvalidErrorWithCause("printer id", err)
		}
		id = parsed
	}
	kind, err := printing.ParseTransportKind(p.Kind)
	if err != nil {
		return printing.PrinterConfig{}, err
	}
	enabled := true
	if p.Enabled != nil {
		enabled = *p.Enabled
	}
	return printing.NewPrinterConfig(printing.PrinterConfigParams{
		ID:            id,
		Kind:          kind,
		Address:       p.Address,
		CredentialRef: p.CredentialRef,
		PaperWidth:    p.PaperWidth,
		Density:       p.Density,
		AutoCut:       p.AutoCut,
		Enabled:       enabled,
	})
}

// InvalidatePrinterConfig handles POST /api/v1/merchants/{merchantId}/printer-config/invalidate,
// the hook the admin console calls after editing printers elsewhere.
func (s *Server) InvalidatePrinterConfig(c echo.Context) error {
	merchantID, err := pathUUID(c, "merchantId")
	if err != nil {
		return writeError(c, err)
	}
	s.deps.Profiles.Invalidate(merchantID)
	return c.NoContent(http.StatusNoContent)
}

// ListManualPrints handles GET /api/v1/merchants/{merchantId}/manual-prints.
func (s *Server) ListManualPrints(c echo.Context) error {
	merchantID, err := pathUUID(c, "merchantId")
	if err != nil {
		return writeError(c, err)
	}

	jobs := s.deps.ManualPrints.Pending(merchantID)
	out := make([]manualPrintResponse, len(jobs))
	for i, j := range jobs {
		out[i] = toManualPrintResponse(j)
	}
	return c.JSON(http.StatusOK, out)
}

// ConfirmManualPrint handles POST /api/v1/manual-prints/{jobId}/confirm.
func (s *Server) ConfirmManualPrint(c echo.Context) error {
	jobID, err := pathString(c, "jobId")
	if err != nil {
		return writeError(c, err)
	}

	job, err := s.deps.ManualPrints.Confirm(ports.JobID(jobID))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toManualPrintResponse(job))
}
