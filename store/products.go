package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Ib-dI/ylang-creations/dbschema"
	"github.com/Ib-dI/ylang-creations/domain"
)

// ProductSort orders product listings.
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortName      ProductSort = "name"
)

var productOrderBy = map[ProductSort]string{
	SortNewest:    "created_at DESC, id",
	SortPriceAsc:  "price ASC, id",
	SortPriceDesc: "price DESC, id",
	SortName:      "name ASC, id",
}

// ProductFilter narrows Products.List.
type ProductFilter struct {
	Category     string
	Search       string
	Featured     *bool
	Customizable *bool
	InStock      bool
	Sort         ProductSort
	Page
}

// ProductList is one page of products with the unpaged total.
type ProductList struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
}

// Products is the product repository.
type Products struct {
	db *sql.DB
}

// NewProducts creates a product repository.
func NewProducts(db *sql.DB) *Products {
	return &Products{db: db}
}

const productColumns = `id, slug, name, description, category, price, stock, images, options,
	featured, customizable, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct scans productColumns.
func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p       domain.Product
		images  pq.StringArray
		options []byte
	)
	dest := []any{&p.ID, &p.Slug, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock,
		&images, &options, &p.Featured, &p.Customizable, &p.CreatedAt, &p.UpdatedAt}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.Images = []string(images)
	if p.Images == nil {
		p.Images = []string{}
	}
	if err := jsonScan(options, &p.Options); err != nil {
		return nil, err
	}
	if p.Options == nil {
		p.Options = map[string]any{}
	}
	return &p, nil
}

// List returns products matching f.
func (r *Products) List(ctx context.Context, f ProductFilter) (*ProductList, error) {
	var w whereBuilder
	if f.Category != "" {
		w.add("category = ?", f.Category)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		w.add("(name ILIKE ? OR description ILIKE ?)", pattern, pattern)
	}
	if f.Featured != nil {
		w.add("featured = ?", *f.Featured)
	}
	if f.Customizable != nil {
		w.add("customizable = ?", *f.Customizable)
	}
	if f.InStock {
		w.add("stock > 0")
	}

	orderBy, ok := productOrderBy[f.Sort]
	if !ok {
		orderBy = productOrderBy[SortNewest]
	}
	page := f.Page.normalize()
	total, err := w.count(ctx, r.db, "products")
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + w.String() +
		` ORDER BY ` + orderBy +
		` LIMIT ` + w.arg(page.Limit) + ` OFFSET ` + w.arg(page.Offset)

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	list := &ProductList{Products: []domain.Product{}, Total: total}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		list.Products = append(list.Products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}
	return list, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Categories returns the distinct non-empty categories.
func (r *Products) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetBySlug returns the product with slug.
func (r *Products) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE slug = $1`, slug))
	if err != nil {
		return nil, notFound(err, "product "+slug)
	}
	return p, nil
}

// GetByID returns the product with id.
func (r *Products) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return getProductByID(ctx, r.db, id)
}

func getProductByID(ctx context.Context, q dbschema.Querier, id uuid.UUID) (*domain.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "product "+id.String())
	}
	return p, nil
}

// Create inserts p, filling its ID and timestamps. A duplicate slug yields ErrConflict.
func (r *Products) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	options, err := jsonValue(nonNilOptions(p.Options))
	if err != nil {
		return err
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO products (id, slug, name, description, category, price, stock, images, options, featured, customizable)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		p.ID, p.Slug, p.Name, p.Description, p.Category, p.Price, p.Stock,
		pq.StringArray(nonNilStrings(p.Images)), options, p.Featured, p.Customizable,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return conflict(err, "failed to create product")
	}
	return nil
}

// Update overwrites every editable column of p.
func (r *Products) Update(ctx context.Context, p *domain.Product) error {
	options, err := jsonValue(nonNilOptions(p.Options))
	if err != nil {
		return err
	}
	err = r.db.QueryRowContext(ctx, `
		UPDATE products
		SET slug = $2, name = $3, description = $4, category = $5, price = $6, stock = $7,
		    images = $8, options = $9, featured = $10, customizable = $11, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.Slug, p.Name, p.Description, p.Category, p.Price, p.Stock,
		pq.StringArray(nonNilStrings(p.Images)), options, p.Featured, p.Customizable,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(err, "product "+p.ID.String())
		}
		return conflict(err, "failed to update product")
	}
	return nil
}

// SetImages replaces the image list of product id.
func (r *Products) SetImages(ctx context.Context, id uuid.UUID, images []string) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		UPDATE products SET images = $2, updated_at = now() WHERE id = $1
		RETURNING `+productColumns, id, pq.StringArray(nonNilStrings(images))))
	if err != nil {
		return nil, notFound(err, "product "+id.String())
	}
	return p, nil
}

// Delete removes product id together with its reviews, in one transaction.
// It returns the deleted product so the caller can clean up its images.
func (r *Products) Delete(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var deleted *domain.Product
	err := dbschema.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		p, err := getProductByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete reviews of product %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete product %s: %w", id, err)
		}
		deleted = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// AdjustStock adds delta to the stock of product id, clamping at zero.
func (r *Products) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	return adjustStock(ctx, r.db, id, delta)
}

func adjustStock(ctx context.Context, q dbschema.Querier, id uuid.UUID, delta int) error {
	res, err := q.ExecContext(ctx,
		`UPDATE products SET stock = GREATEST(stock + $2, 0), updated_at = now() WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust stock of product %s: %w", id, err)
	}
	return mustAffect(res, "product "+id.String())
}

// Count returns the number of products.
func (r *Products) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilOptions(o map[string]any) map[string]any {
	if o == nil {
		return map[string]any{}
	}
	return o
}
