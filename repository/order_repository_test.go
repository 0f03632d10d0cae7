package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/orderstate"
	"github.com/yashrajoria/storefront-service/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	assert.NoError(t, err)
	return gormDB, mock
}

var orderColumns = []string{"id", "store_id", "processor_order_id", "payment_id", "amount", "currency", "is_paid", "payment_status", "order_status", "created_at", "updated_at"}

func orderRow(id uuid.UUID, paymentID interface{}, isPaid bool, payStatus models.PaymentStatus, status models.OrderStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(orderColumns).
		AddRow(id, "store-1", "order_1", paymentID, 1500, "INR", isPaid, string(payStatus), string(status), now, now)
}

func itemRows(orderID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "order_id", "product_id", "price"}).
		AddRow(uuid.New(), orderID, "p1", 1000).
		AddRow(uuid.New(), orderID, "p2", 500)
}

var confirmMatch = repository.OrderMatch{StoreID: "store-1", ProcessorOrderID: "order_1", PaymentID: "pay_1"}

// The conditional update touches at most one row, picked by the same match
// the read-back uses, and only while the order is still pending.
const (
	confirmUpdateSQL = `^UPDATE "orders" SET "is_paid"=\$1,"order_status"=\$2,"paid_at"=\$3,"payment_id"=\$4,"payment_status"=\$5,"updated_at"=\$6 ` +
		`WHERE id = \(SELECT "id" FROM "orders" WHERE store_id = \$7 AND \(\(payment_id = \$8 OR \(payment_id IS NULL AND processor_order_id = \$9\)\)\) ` +
		`AND "orders"\."deleted_at" IS NULL ORDER BY payment_id IS NULL LIMIT \$10\) ` +
		`AND order_status IN \(\$11\) AND "orders"\."deleted_at" IS NULL$`
	failUpdateSQL = `^UPDATE "orders" SET "canceled_at"=\$1,"order_status"=\$2,"payment_status"=\$3,"updated_at"=\$4 ` +
		`WHERE id = \(SELECT "id" FROM "orders" WHERE store_id = \$5 AND processor_order_id = \$6 ` +
		`AND "orders"\."deleted_at" IS NULL ORDER BY payment_id IS NULL LIMIT \$7\) ` +
		`AND order_status IN \(\$8\) AND "orders"\."deleted_at" IS NULL$`
	cancelUpdateSQL = `^UPDATE "orders" SET "canceled_at"=\$1,"order_status"=\$2,"updated_at"=\$3 ` +
		`WHERE \(store_id = \$4 AND id = \$5\) AND order_status IN \(\$6\) AND "orders"\."deleted_at" IS NULL$`
)

func expectConfirmUpdate(mock sqlmock.Sqlmock, rows int64) {
	mock.ExpectBegin()
	mock.ExpectExec(confirmUpdateSQL).
		WithArgs(true, "confirmed", sqlmock.AnyArg(), "pay_1", "paid", sqlmock.AnyArg(), "store-1", "pay_1", "order_1", 1, "pending").
		WillReturnResult(sqlmock.NewResult(0, rows))
	mock.ExpectCommit()
}

func TestCreate_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	order := &models.Order{
		ID:               uuid.New(),
		StoreID:          "store-1",
		ProcessorOrderID: "order_1",
		Amount:           1500,
		Currency:         "INR",
		PaymentStatus:    models.PaymentStatusPending,
		OrderStatus:      models.OrderStatusPending,
		OrderItems:       []models.OrderItem{{ID: uuid.New(), ProductID: "p1", Price: 1500}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(order.ID))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(order.OrderItems[0].ID))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), order)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_ConfirmsPendingOrder(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)
	id := uuid.New()

	expectConfirmUpdate(mock, 1)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(orderRow(id, "pay_1", true, models.PaymentStatusPaid, models.OrderStatusConfirmed))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items"`)).
		WillReturnRows(itemRows(id))

	order, changed, err := repo.ApplyTransition(context.Background(), confirmMatch, orderstate.EventConfirmPayment)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, order.IsPaid)
	assert.Equal(t, models.OrderStatusConfirmed, order.OrderStatus)
	assert.Len(t, order.OrderItems, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_AlreadyConfirmedIsIdempotent(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)
	id := uuid.New()

	expectConfirmUpdate(mock, 0)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(orderRow(id, "pay_1", true, models.PaymentStatusPaid, models.OrderStatusConfirmed))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items"`)).
		WillReturnRows(itemRows(id))

	order, changed, err := repo.ApplyTransition(context.Background(), confirmMatch, orderstate.EventConfirmPayment)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.OrderStatusConfirmed, order.OrderStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_CanceledOrderRejected(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)
	id := uuid.New()

	expectConfirmUpdate(mock, 0)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(orderRow(id, nil, false, models.PaymentStatusFailed, models.OrderStatusCanceled))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items"`)).
		WillReturnRows(itemRows(id))

	_, changed, err := repo.ApplyTransition(context.Background(), confirmMatch, orderstate.EventConfirmPayment)
	assert.ErrorIs(t, err, orderstate.ErrInvalidTransition)
	assert.False(t, changed)
}

func TestApplyTransition_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	expectConfirmUpdate(mock, 0)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(sqlmock.NewRows(orderColumns))

	order, changed, err := repo.ApplyTransition(context.Background(), confirmMatch, orderstate.EventConfirmPayment)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
	assert.Nil(t, order)
	assert.False(t, changed)
}

func TestApplyTransition_ConcurrentChange(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)
	id := uuid.New()

	expectConfirmUpdate(mock, 0)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(orderRow(id, nil, false, models.PaymentStatusPending, models.OrderStatusPending))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items"`)).
		WillReturnRows(itemRows(id))

	_, _, err := repo.ApplyTransition(context.Background(), confirmMatch, orderstate.EventConfirmPayment)
	assert.ErrorIs(t, err, repository.ErrConcurrentUpdate)
}

func TestApplyTransition_UnknownEvent(t *testing.T) {
	gormDB, _ := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	_, _, err := repo.ApplyTransition(context.Background(), confirmMatch, orderstate.Event("refund"))
	assert.ErrorIs(t, err, orderstate.ErrInvalidTransition)
}

func TestFindByID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(sqlmock.NewRows(orderColumns))

	o, err := repo.FindByID(context.Background(), "store-1", id)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
	assert.Nil(t, o)
}

func TestFindAll_Paginates(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(orderRow(id, nil, false, models.PaymentStatusPending, models.OrderStatusPending))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items"`)).
		WillReturnRows(itemRows(id))

	orders, total, err := repo.FindAll(context.Background(), "store-1", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(11), total)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].OrderItems, 2)
}

func TestDelete(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET "deleted_at"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	assert.NoError(t, repo.Delete(context.Background(), "store-1", uuid.New()))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET "deleted_at"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	assert.ErrorIs(t, repo.Delete(context.Background(), "store-1", uuid.New()), repository.ErrOrderNotFound)
}

func TestApplyTransition_FailPaymentMatchesProcessorOrder(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(failUpdateSQL).
		WithArgs(sqlmock.AnyArg(), "canceled", "failed", sqlmock.AnyArg(), "store-1", "order_1", 1, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(orderRow(id, nil, false, models.PaymentStatusFailed, models.OrderStatusCanceled))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items"`)).
		WillReturnRows(itemRows(id))

	match := repository.OrderMatch{StoreID: "store-1", ProcessorOrderID: "order_1"}
	order, changed, err := repo.ApplyTransition(context.Background(), match, orderstate.EventFailPayment)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.PaymentStatusFailed, order.PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_AdminCancelByOrderID(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(cancelUpdateSQL).
		WithArgs(sqlmock.AnyArg(), "canceled", sqlmock.AnyArg(), "store-1", id, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE store_id = $1 AND id = $2`)).
		WithArgs("store-1", id, 1).
		WillReturnRows(orderRow(id, nil, false, models.PaymentStatusPending, models.OrderStatusCanceled))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items"`)).
		WillReturnRows(itemRows(id))

	match := repository.OrderMatch{StoreID: "store-1", OrderID: id}
	order, changed, err := repo.ApplyTransition(context.Background(), match, orderstate.EventCancel)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.OrderStatusCanceled, order.OrderStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_ReadBackPrefersBoundOrder(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)
	id := uuid.New()

	expectConfirmUpdate(mock, 0)
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY payment_id IS NULL,"orders"."id" LIMIT $4`)).
		WithArgs("store-1", "pay_1", "order_1", 1).
		WillReturnRows(orderRow(id, "pay_1", true, models.PaymentStatusPaid, models.OrderStatusConfirmed))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items"`)).
		WillReturnRows(itemRows(id))

	order, changed, err := repo.ApplyTransition(context.Background(), confirmMatch, orderstate.EventConfirmPayment)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "pay_1", *order.PaymentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
