package models

// Product is a read-only view of the catalog table owned by the admin
// console. It is never migrated from here.
type Product struct {
	ID         string `gorm:"primaryKey" json:"id"`
	StoreID    string `json:"storeId"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	IsArchived bool   `json:"isArchived"`
}

func (Product) TableName() string { return "products" }
