package model

// OrderSummary is the slice of an order a purchase confirmation needs.
type OrderSummary struct {
	OrderID     int64
	ProductName string
	Quantity    int
	TotalAmount int64
}

// DownloadInfo points the buyer at the purchased digital product.
type DownloadInfo struct {
	URL string
}
