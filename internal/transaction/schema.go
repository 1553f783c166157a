package transaction

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const TableName = "novac_transactions"

// Migrator is satisfied by db.GormClient.
type Migrator interface {
	AutoMigrate(models ...any) error
}

// transactionRow owns the table layout. Reads and writes go through
// SQLRepository; this model is only handed to AutoMigrate.
type transactionRow struct {
	ID             int64           `gorm:"primaryKey;autoIncrement"`
	TransactionRef string          `gorm:"column:transaction_ref;size:255;not null;uniqueIndex:transaction_ref"`
	CustomerEmail  string          `gorm:"size:255;not null;index:customer_email"`
	CustomerName   *string         `gorm:"size:255"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency       string          `gorm:"size:10;default:NGN"`
	Status         string          `gorm:"size:50;default:pending;index:status"`
	PaymentMethod  *string         `gorm:"size:50"`
	Description    *string         `gorm:"type:text"`
	Metadata       datatypes.JSON
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (transactionRow) TableName() string { return TableName }

func Migrate(m Migrator) error {
	return m.AutoMigrate(&transactionRow{})
}
