package repository

import (
	"time"

	"github.com/kursadbilgin/order-notifier/internal/domain"
)

// OrderModel is the persistence model for the orders table.
type OrderModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Item        string `gorm:"type:varchar(255);not null"`
	Amount      int64  `gorm:"not null"`
	PhoneNumber string `gorm:"type:varchar(20);not null"`
	CustomerID  int64  `gorm:"not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

func orderModelFromDomain(o *domain.Order) *OrderModel {
	if o == nil {
		return nil
	}

	return &OrderModel{
		ID:          o.ID,
		Item:        o.Item,
		Amount:      o.Amount,
		PhoneNumber: o.PhoneNumber,
		CustomerID:  o.CustomerID,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func orderModelToDomain(m *OrderModel) *domain.Order {
	if m == nil {
		return nil
	}

	return &domain.Order{
		ID:          m.ID,
		Item:        m.Item,
		Amount:      m.Amount,
		PhoneNumber: m.PhoneNumber,
		CustomerID:  m.CustomerID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
