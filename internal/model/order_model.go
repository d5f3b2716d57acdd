package model

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderFailed     OrderStatus = "failed"
)

type OwnerKind string

const (
	OwnerUser  OwnerKind = "user"
	OwnerGuest OwnerKind = "guest"
)

// Owner is a tagged variant: a registered user (UserID set) or a guest
// (email + name only). Email is populated for both kinds so confirmation
// mail never needs a second lookup.
type Owner struct {
	Kind   OwnerKind `json:"kind"`
	UserID int64     `json:"user_id,omitempty"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
}

func UserOwner(userID int64, email, name string) Owner {
	return Owner{Kind: OwnerUser, UserID: userID, Email: email, Name: name}
}

func GuestOwner(email, name string) Owner {
	return Owner{Kind: OwnerGuest, Email: email, Name: name}
}

func (o Owner) IsUser() bool { return o.Kind == OwnerUser }

// BelongsTo reports whether the owner is the given registered user.
// Guest orders never belong to a user id.
func (o Owner) BelongsTo(userID int64) bool {
	return o.Kind == OwnerUser && o.UserID == userID
}

type Order struct {
	OrderID     int64       `db:"order_id" json:"order_id"`
	Owner       Owner       `json:"owner"`
	ProductID   int64       `db:"product_id" json:"product_id"`
	ProductName string      `db:"product_name" json:"product_name"`
	DownloadURL string      `db:"download_url" json:"-"`
	Quantity    int         `db:"quantity" json:"quantity"`
	UnitPrice   int64       `db:"unit_price" json:"unit_price"`
	TotalAmount int64       `db:"total_amount" json:"total_amount"`
	Status      OrderStatus `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}
