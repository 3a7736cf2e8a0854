package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

// ErrProductNotFound is returned when no product matches.
var ErrProductNotFound = errors.New("product not found")

type ProductRecord struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	Rating     int       `json:"rating"`
	Price      float64   `json:"price"`
	Notes      *string   `json:"notes"`
	RecordDate time.Time `json:"record_date"`
}

type Product struct {
	ID         int64           `json:"id"`
	Barcode    string          `json:"barcode"`
	Name       string          `json:"name"`
	CategoryID int             `json:"category_id"`
	Photo      *string         `json:"photo"`
	CreatedAt  time.Time       `json:"created_at"`
	Records    []ProductRecord `json:"records"`
}

// ProductCreateInput is a new product together with its first record.
type ProductCreateInput struct {
	Barcode    string  `json:"barcode"`
	Name       string  `json:"name"`
	CategoryID int     `json:"category_id"`
	Photo      *string `json:"photo"`
	Rating     int     `json:"rating"`
	Price      float64 `json:"price"`
	Notes      *string `json:"notes"`
}

type RecordInput struct {
	ProductID int64   `json:"product_id"`
	Rating    int     `json:"rating"`
	Price     float64 `json:"price"`
	Notes     *string `json:"notes"`
}

type ProductRepository interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (*Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*Product, error)
	Search(ctx context.Context, query string) ([]Product, error)
	Create(ctx context.Context, in ProductCreateInput) (*Product, error)
	AddRecord(ctx context.Context, in RecordInput) (*ProductRecord, error)
	Delete(ctx context.Context, id int64) error
}

type PgProductRepository struct {
	db PgxPool
}

func NewPgProductRepository(db PgxPool) *PgProductRepository {
	return &PgProductRepository{db: db}
}

const productColumns = `id, barcode, name, category_id, photo, created_at`

func (r *PgProductRepository) List(ctx context.Context) ([]Product, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id DESC`)
}

func (r *PgProductRepository) Search(ctx context.Context, query string) ([]Product, error) {
	return r.queryProducts(ctx, `
SELECT `+productColumns+`
FROM products
WHERE name ILIKE '%' || $1 || '%'
ORDER BY created_at DESC, id DESC
`, strings.TrimSpace(query))
}

func (r *PgProductRepository) Get(ctx context.Context, id int64) (*Product, error) {
	return r.queryProduct(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
}

func (r *PgProductRepository) GetByBarcode(ctx context.Context, barcode string) (*Product, error) {
	return r.queryProduct(ctx, `SELECT `+productColumns+` FROM products WHERE barcode=$1 ORDER BY id LIMIT 1`, barcode)
}

// Create inserts the product and its first record in one transaction.
// A failure after the first insert rolls both back before the error is returned.
func (r *PgProductRepository) Create(ctx context.Context, in ProductCreateInput) (*Product, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, oops.Code("PRODUCT_CREATE_FAILED").With("operation", "begin").Wrap(err)
	}
	defer func() {
		if rec := recover(); rec != nil {
			_ = tx.Rollback(ctx)
			panic(rec)
		}
	}()

	created := Product{
		Barcode:    strings.TrimSpace(in.Barcode),
		Name:       strings.TrimSpace(in.Name),
		CategoryID: in.CategoryID,
		Photo:      in.Photo,
	}
	const insertProduct = `INSERT INTO products (barcode, name, category_id, photo) VALUES ($1,$2,$3,$4) RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insertProduct, created.Barcode, created.Name, created.CategoryID, created.Photo).
		Scan(&created.ID, &created.CreatedAt); err != nil {
		return nil, rollbackTx(ctx, tx, oops.Code("PRODUCT_CREATE_FAILED").With("operation", "insert product").Wrap(err))
	}

	record := ProductRecord{ProductID: created.ID, Rating: in.Rating, Price: in.Price, Notes: in.Notes}
	const insertRecord = `INSERT INTO product_records (product_id, rating, price, notes) VALUES ($1,$2,$3,$4) RETURNING id, record_date`
	if err := tx.QueryRow(ctx, insertRecord, record.ProductID, record.Rating, record.Price, record.Notes).
		Scan(&record.ID, &record.RecordDate); err != nil {
		return nil, rollbackTx(ctx, tx, oops.Code("PRODUCT_CREATE_FAILED").With("operation", "insert record").Wrap(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, rollbackTx(ctx, tx, oops.Code("PRODUCT_CREATE_FAILED").With("operation", "commit").Wrap(err))
	}
	created.Records = []ProductRecord{record}
	return &created, nil
}

func (r *PgProductRepository) AddRecord(ctx context.Context, in RecordInput) (*ProductRecord, error) {
	rec := ProductRecord{ProductID: in.ProductID, Rating: in.Rating, Price: in.Price, Notes: in.Notes}
	const q = `INSERT INTO product_records (product_id, rating, price, notes) VALUES ($1,$2,$3,$4) RETURNING id, record_date`
	if err := r.db.QueryRow(ctx, q, rec.ProductID, rec.Rating, rec.Price, rec.Notes).Scan(&rec.ID, &rec.RecordDate); err != nil {
		return nil, oops.Code("RECORD_CREATE_FAILED").With("product_id", in.ProductID).Wrap(err)
	}
	return &rec, nil
}

func (r *PgProductRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM products WHERE id=$1`, id); err != nil {
		return oops.Code("PRODUCT_DELETE_FAILED").With("product_id", id).Wrap(err)
	}
	return nil
}

func (r *PgProductRepository) queryProduct(ctx context.Context, q string, args ...any) (*Product, error) {
	var p Product
	if err := r.db.QueryRow(ctx, q, args...).Scan(&p.ID, &p.Barcode, &p.Name, &p.CategoryID, &p.Photo, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, oops.Code("PRODUCT_LOAD_FAILED").Wrap(err)
	}
	records, err := r.recordsFor(ctx, []int64{p.ID})
	if err != nil {
		return nil, err
	}
	p.Records = records[p.ID]
	if p.Records == nil {
		p.Records = []ProductRecord{}
	}
	return &p, nil
}

func (r *PgProductRepository) queryProducts(ctx context.Context, q string, args ...any) ([]Product, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, oops.Code("PRODUCT_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()
	items := make([]Product, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Barcode, &p.Name, &p.CategoryID, &p.Photo, &p.CreatedAt); err != nil {
			return nil, oops.Code("PRODUCT_LIST_FAILED").Wrap(err)
		}
		items = append(items, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("PRODUCT_LIST_FAILED").Wrap(err)
	}
	rows.Close()
	if len(ids) == 0 {
		return items, nil
	}

	records, err := r.recordsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Records = records[items[i].ID]
		if items[i].Records == nil {
			items[i].Records = []ProductRecord{}
		}
	}
	return items, nil
}

// recordsFor loads records for all ids in one query, newest first.
func (r *PgProductRepository) recordsFor(ctx context.Context, ids []int64) (map[int64][]ProductRecord, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, product_id, rating, price, notes, record_date
FROM product_records
WHERE product_id = ANY($1)
ORDER BY record_date DESC, id DESC
`, ids)
	if err != nil {
		return nil, oops.Code("RECORD_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()
	out := make(map[int64][]ProductRecord, len(ids))
	for rows.Next() {
		var rec ProductRecord
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.Rating, &rec.Price, &rec.Notes, &rec.RecordDate); err != nil {
			return nil, oops.Code("RECORD_LIST_FAILED").Wrap(err)
		}
		out[rec.ProductID] = append(out[rec.ProductID], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("RECORD_LIST_FAILED").Wrap(err)
	}
	return out, nil
}

// rollbackTx rolls tx back and returns cause. A failed rollback is attached to cause.
func rollbackTx(ctx context.Context, tx pgx.Tx, cause error) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return oops.With("rollback_error", err.Error()).Wrap(cause)
	}
	return cause
}
