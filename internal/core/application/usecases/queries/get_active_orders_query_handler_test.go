package queries

import (
	"context"
	"testing"
	"time"

	"cafe/internal/adapters/out/postgres/migrations"
	"cafe/internal/adapters/out/postgres/orderrepo"
	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GetActiveOrdersQueryHandlerTestSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	db        *gorm.DB
	repo      *orderrepo.GormOrderRepository
	handler   GetActiveOrdersQueryHandler
}

func (suite *GetActiveOrdersQueryHandlerTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30*time.Second)),
	)
	suite.Require().NoError(err)
	suite.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(gorm_postgres.Open(dsn), &gorm.Config{Logger: logger.Discard})
	suite.Require().NoError(err)
	suite.db = db

	sqlDB, err := db.DB()
	suite.Require().NoError(err)
	suite.Require().NoError(migrations.Up(sqlDB))

	suite.repo = orderrepo.NewGormOrderRepository(db)
	suite.handler = NewGetActiveOrdersQueryHandler(db)
}

func (suite *GetActiveOrdersQueryHandlerTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE order_line_items, orders CASCADE").Error)
}

func (suite *GetActiveOrdersQueryHandlerTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

var queueStart = time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

func (suite *GetActiveOrdersQueryHandlerTestSuite) addOrder(merchantID kernel.UUID, number string, placedAt time.Time, itemCount int) *order.Order {
	o, err := order.NewOrder(
		kernel.NewUUID(),
		number,
		merchantID,
		kernel.MustMoney("120.50"),
		placedAt,
		order.Fulfillment{Channel: order.DeliveryToBlock, Location: "Block C"},
		order.Contact{Name: "Meera", Phone: "90000 11111"},
	)
	suite.Require().NoError(err)

	items := make([]order.LineItem, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		item, err := order.NewLineItem("Masala Dosa", "", 1, kernel.MustMoney("60.25"), "")
		suite.Require().NoError(err)
		items = append(items, item)
	}
	suite.Require().NoError(suite.repo.Add(context.Background(), o, items))
	return o
}

func (suite *GetActiveOrdersQueryHandlerTestSuite) advance(o *order.Order, to order.Status) {
	at := o.StatusChangedAt().Add(time.Minute)
	suite.Require().NoError(suite.repo.UpdateStatus(context.Background(), o.ID(), o.Status(), to, at))
}

func (suite *GetActiveOrdersQueryHandlerTestSuite) TestHandle_ReturnsOpenOrdersOldestFirst() {
	ctx := context.Background()
	merchantID := kernel.NewUUID()

	second := suite.addOrder(merchantID, "A1002", queueStart.Add(2*time.Minute), 1)
	first := suite.addOrder(merchantID, "A1001", queueStart, 2)
	done := suite.addOrder(merchantID, "A1003", queueStart.Add(3*time.Minute), 1)
	suite.advance(done, order.Cancelled)
	suite.addOrder(kernel.NewUUID(), "B2001", queueStart, 1)

	query, err := NewGetActiveOrdersQuery(merchantID)
	suite.Require().NoError(err)

	got, err := suite.handler.Handle(ctx, query)

	suite.Require().NoError(err)
	suite.Require().Len(got, 2)

	suite.True(got[0].ID.IsEqual(first.ID()))
	suite.Equal("A1001", got[0].Number)
	suite.Equal(order.Received, got[0].Status)
	suite.Equal(2, got[0].ItemCount)
	suite.True(got[0].Total.IsEqual(kernel.MustMoney("120.50")))
	suite.True(got[0].PlacedAt.Equal(queueStart))
	suite.Equal(order.DeliveryToBlock, got[0].Channel)
	suite.Equal("Block C", got[0].Location)

	suite.True(got[1].ID.IsEqual(second.ID()))
	suite.Equal(1, got[1].ItemCount)
}

func (suite *GetActiveOrdersQueryHandlerTestSuite) TestHandle_FiltersByStatus() {
	ctx := context.Background()
	merchantID := kernel.NewUUID()

	suite.addOrder(merchantID, "A1001", queueStart, 1)
	cancelled := suite.addOrder(merchantID, "A1002", queueStart.Add(time.Minute), 1)
	suite.advance(cancelled, order.Cancelled)

	query, err := NewGetActiveOrdersQuery(merchantID, order.Cancelled)
	suite.Require().NoError(err)

	got, err := suite.handler.Handle(ctx, query)

	suite.Require().NoError(err)
	suite.Require().Len(got, 1)
	suite.Equal("A1002", got[0].Number)
	suite.Equal(order.Cancelled, got[0].Status)
}

func (suite *GetActiveOrdersQueryHandlerTestSuite) TestHandle_EmptyQueue() {
	query, err := NewGetActiveOrdersQuery(kernel.NewUUID())
	suite.Require().NoError(err)

	got, err := suite.handler.Handle(context.Background(), query)

	suite.Require().NoError(err)
	suite.NotNil(got)
	suite.Empty(got)
}

func (suite *GetActiveOrdersQueryHandlerTestSuite) TestHandle_RejectsZeroQuery() {
	_, err := suite.handler.Handle(context.Background(), GetActiveOrdersQuery{})

	suite.ErrorIs(err, ErrGetActiveOrdersQueryIsNotConstructed)
}

func TestGetActiveOrdersQueryHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(GetActiveOrdersQueryHandlerTestSuite))
}
