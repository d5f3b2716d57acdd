package repository

import (
	"context"
	"errors"

	"github.com/jefthah/My-marketplace-sub000/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProductRepository is the read surface of the catalog subsystem. Checkout
// only needs name, price and the download link snapshot; catalog CRUD lives
// elsewhere.
type ProductRepository struct {
	DB *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{DB: db}
}

func (r *ProductRepository) ByID(ctx context.Context, productID int64) (*model.Product, error) {
	var p model.Product
	err := r.DB.QueryRow(ctx, `
		SELECT product_id, name, price, download_url
		FROM products
		WHERE product_id=$1 AND deleted_at IS NULL
	`, productID).Scan(&p.ProductID, &p.Name, &p.Price, &p.DownloadURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
