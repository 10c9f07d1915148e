package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	httpapi "cafe/internal/adapters/in/http"
	"cafe/internal/adapters/out/kafkaevents"
	"cafe/internal/adapters/out/memory"
	"cafe/internal/adapters/out/pgnotify"
	"cafe/internal/adapters/out/postgres"
	"cafe/internal/adapters/out/postgres/ledgerrepo"
	"cafe/internal/adapters/out/postgres/orderrepo"
	"cafe/internal/adapters/out/postgres/printerrepo"
	"cafe/internal/adapters/out/printers"
	"cafe/internal/adapters/out/rabbitmq"
	"cafe/internal/core/application/lifecycle"
	"cafe/internal/core/application/printing"
	"cafe/internal/core/application/reconcile"
	"cafe/internal/core/application/usecases/commands"
	"cafe/internal/core/application/usecases/queries"
	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/core/domain/services"
	"cafe/internal/core/ports"
	"cafe/internal/jobs"

	"gorm.io/gorm"
)

// CompositionRoot owns the long-lived components of the process and hands
// out the use case handlers built on them.
type CompositionRoot struct {
	cfg    Config
	logger *slog.Logger

	gormDB     *gorm.DB
	uowFactory *postgres.GormUnitOfWorkFactory

	orders      *orderrepo.GormOrderRepository
	profiles    *printerrepo.GormMerchantProfileRepository
	ledger      ports.PrintLedger
	configCache *printing.ConfigCache
	manualQueue *printers.ManualQueue

	subscriber  *pgnotify.Subscriber
	reconciler  *reconcile.Reconciler
	engine      *printing.Engine
	coordinator *lifecycle.Coordinator
	jobManager  *jobs.JobManager

	loyalty *rabbitmq.LoyaltyPublisher
	events  *kafkaevents.StatusEventPublisher
}

// NewCompositionRoot wires every component. RabbitMQ and Kafka are optional:
// when their settings are empty, loyalty credit and status events are off.
func NewCompositionRoot(cfg Config, gormDB *gorm.DB, logger *slog.Logger) (*CompositionRoot, error) {
	c := &CompositionRoot{
		cfg:         cfg,
		logger:      logger,
		gormDB:      gormDB,
		uowFactory:  postgres.NewGormUnitOfWorkFactory(gormDB),
		orders:      orderrepo.NewGormOrderRepository(gormDB),
		profiles:    printerrepo.NewGormMerchantProfileRepository(gormDB),
		manualQueue: printers.NewManualQueue(),
	}
	if cfg.LedgerStore == "memory" {
		c.ledger = memory.NewPrintLedger()
	} else {
		c.ledger = ledgerrepo.NewGormPrintLedger(gormDB)
	}
	c.configCache = printing.NewConfigCache(c.profiles)

	c.subscriber = pgnotify.NewSubscriber(cfg.DSN(), logger, pgnotify.WithReconnectHook(c.pollAfterReconnect))
	c.reconciler = reconcile.NewReconciler(
		reconcile.NewRegistry(c.subscriber),
		c.orders,
		logger,
		reconcile.WithRetention(cfg.LedgerRetention),
	)

	var loyalty ports.LoyaltyCreditor
	if cfg.RabbitMQURL != "" {
		publisher, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, fmt.Errorf("connect loyalty broker: %w", err)
		}
		c.loyalty = publisher
		loyalty = publisher
	} else {
		logger.Warn("RABBITMQ_URL is empty; loyalty credit is disabled")
	}

	var events ports.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		c.events = kafkaevents.NewStatusEventPublisher(cfg.KafkaBrokers, cfg.KafkaOrderStatusTopic)
		events = c.events
	} else {
		logger.Warn("KAFKA_BROKERS is empty; order status events are disabled")
	}

	// The engine's status guard reads the coordinator's view, and the
	// coordinator dispatches through the engine.
	var status statusSource
	c.engine = printing.NewEngine(
		c.configCache,
		c.ledger,
		c.orders,
		c.transports(),
		logger,
		printing.WithStaleAfter(cfg.StaleAfter),
		printing.WithSendTimeout(cfg.SendTimeout),
		printing.WithFormatter(services.NewReceiptFormatter(services.WithCurrency(cfg.CurrencySymbol))),
		printing.WithStatusSource(&status),
	)
	c.coordinator = lifecycle.NewCoordinator(
		FuncOrderUoWFactory(func() commands.OrderUoW {
			return c.uowFactory.Create()
		}),
		c.orders,
		c.reconciler,
		c.engine,
		loyalty,
		events,
		logger,
	)
	status.coordinator = c.coordinator

	c.jobManager = jobs.NewJobManager(
		c.reconciler,
		cfg.PollInterval,
		c.ledger,
		c.coordinator,
		cfg.LedgerRetention,
		logger,
	)
	return c, nil
}

func (c *CompositionRoot) transports() []ports.PrinterTransport {
	transports := []ports.PrinterTransport{
		printers.NewLocalNetworkTransport(c.cfg.SendTimeout),
		printers.NewSerialTransport(),
		printers.NewManualTransport(c.manualQueue, c.logger),
	}
	if c.cfg.CloudPrintBaseURL != "" {
		transports = append(transports, printers.NewCloudTransport(
			c.cfg.CloudPrintBaseURL,
			printerrepo.NewGormCredentialResolver(c.gormDB),
		))
	} else {
		c.logger.Warn("CLOUD_PRINT_BASE_URL is empty; cloud printers are skipped")
	}
	return transports
}

// pollAfterReconnect refreshes every feed after the push channel came back,
// since notifications sent while it was down are lost.
func (c *CompositionRoot) pollAfterReconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PollInterval)
	defer cancel()
	if err := c.reconciler.Poll(ctx); err != nil {
		c.logger.WarnContext(ctx, "poll after reconnect failed", "error", err)
	}
}

// Start runs the push listener, the scheduled jobs and the coordinator's fact
// consumption for every configured merchant until ctx ends. It returns once
// everything is running.
func (c *CompositionRoot) Start(ctx context.Context) error {
	go c.subscriber.Run(ctx)

	if err := c.jobManager.StartAll(); err != nil {
		return err
	}

	merchants, err := c.profiles.MerchantIDs(ctx)
	if err != nil {
		c.jobManager.StopAll()
		return fmt.Errorf("list merchants: %w", err)
	}

	go func() {
		if err := c.coordinator.Run(ctx, merchants); err != nil {
			c.logger.ErrorContext(ctx, "coordinator stopped", "error", err)
		}
	}()
	return nil
}

// Close stops the jobs, waits for background side effects and releases
// every connection.
func (c *CompositionRoot) Close() error {
	c.jobManager.StopAll()
	c.coordinator.Wait()
	c.reconciler.Close()

	var errList []error
	if err := c.subscriber.Close(); err != nil {
		errList = append(errList, fmt.Errorf("close push listener: %w", err))
	}
	if c.loyalty != nil {
		if err := c.loyalty.Close(); err != nil {
			errList = append(errList, fmt.Errorf("close loyalty publisher: %w", err))
		}
	}
	if c.events != nil {
		if err := c.events.Close(); err != nil {
			errList = append(errList, fmt.Errorf("close status publisher: %w", err))
		}
	}
	return errors.Join(errList...)
}

// HTTPServer builds the API server over the root's use cases.
func (c *CompositionRoot) HTTPServer() *httpapi.Server {
	createOrder := c.CreateCreateOrderCommandHandler()
	assignStaff := c.CreateAssignStaffCommandHandler()
	saveProfile := c.CreateSavePrinterProfileCommandHandler()
	reprint := c.CreateReprintCommandHandler()

	return httpapi.NewServer(httpapi.Dependencies{
		Transitions:  c.coordinator,
		Facts:        c.reconciler,
		Orders:       c.orders,
		Dispatcher:   c.engine,
		CreateOrder:  &createOrder,
		AssignStaff:  &assignStaff,
		SaveProfile:  &saveProfile,
		Reprint:      &reprint,
		ActiveOrders: c.CreateGetActiveOrdersQueryHandler(),
		Profiles:     c.configCache,
		ManualPrints: c.manualQueue,
	}, c.logger)
}

func (c *CompositionRoot) CreateCreateOrderCommandHandler() commands.CreateOrderCommandHandler {
	var f commands.OrderUoWFactory = FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
	return commands.NewCreateOrderCommandHandler(f)
}

func (c *CompositionRoot) CreateAssignStaffCommandHandler() commands.AssignStaffCommandHandler {
	var f commands.OrderUoWFactory = FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
	return commands.NewAssignStaffCommandHandler(f)
}

func (c *CompositionRoot) CreateSavePrinterProfileCommandHandler() commands.SavePrinterProfileCommandHandler {
	var f commands.ProfileUoWFactory = FuncProfileUoWFactory(func() commands.ProfileUoW {
		return c.uowFactory.Create()
	})
	return commands.NewSavePrinterProfileCommandHandler(f, c.configCache)
}

func (c *CompositionRoot) CreateReprintCommandHandler() commands.ReprintCommandHandler {
	return commands.NewReprintCommandHandler(c.engine)
}

func (c *CompositionRoot) CreateGetActiveOrdersQueryHandler() queries.GetActiveOrdersQueryHandler {
	return queries.NewGetActiveOrdersQueryHandler(c.gormDB)
}

// statusSource defers to the coordinator once it exists.
type statusSource struct {
	coordinator *lifecycle.Coordinator
}

func (s *statusSource) CurrentStatus(orderID kernel.UUID) (order.Status, bool) {
	if s.coordinator == nil {
		return order.Unknown, false
	}
	return s.coordinator.CurrentStatus(orderID)
}

type FuncOrderUoWFactory func() commands.OrderUoW

func (f FuncOrderUoWFactory) Create() commands.OrderUoW {
	return f()
}

type FuncProfileUoWFactory func() commands.ProfileUoW

func (f FuncProfileUoWFactory) Create() commands.ProfileUoW {
	return f()
}
