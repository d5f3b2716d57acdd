package model

// Product is the catalog slice the payment flow needs: enough to price an
// order and to hand the buyer a download link after completion.
type Product struct {
	ProductID   int64  `db:"product_id" json:"product_id"`
	Name        string `db:"name" json:"name"`
	Price       int64  `db:"price" json:"price"`
	DownloadURL string `db:"download_url" json:"-"`
}
