package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"auctiond/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// CatalogRepository loads the auction catalog from MySQL. The lifecycle
// service reads it once at startup; nothing is ever written back, since the
// catalog is fixed for the process lifetime and lifecycle state is volatile.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) LoadCatalog(ctx context.Context) ([]*domain.Auction, error) {
	query := `
        SELECT id, description, minimum_price, start_time, end_time
        FROM auction_catalog
        ORDER BY start_time, id
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query auction catalog: %w", err)
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction := &domain.Auction{Status: domain.AuctionPending}
		err := rows.Scan(&auction.ID, &auction.Description, &auction.MinimumPrice,
			&auction.StartTime, &auction.EndTime)
		if err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(auctions) == 0 {
		return nil, fmt.Errorf("auction catalog is empty")
	}

	return auctions, nil
}
