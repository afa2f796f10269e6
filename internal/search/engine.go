package search

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"estatecatalog/server/internal/models"
	"estatecatalog/server/internal/pricing"
)

// Source is the read model the engine queries.
type Source interface {
	Rows(ctx context.Context, tenantID uint) ([]*models.ListedProperty, error)
	Find(ctx context.Context, tenantID, assetID uint) (*models.ListedProperty, error)
}

// Result is one page of a search.
type Result struct {
	Properties []*models.ListedProperty `json:"properties"`
	Total      int                      `json:"total"`
	Limit      int                      `json:"limit"`
	Offset     int                      `json:"offset"`
}

// Engine runs searches and named scopes for one tenant at a time.
type Engine struct {
	source   Source
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewEngine(source Source, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		source:   source,
		validate: NewValidator(),
		logger:   logger,
	}
}

// Search validates the criteria, filters the tenant's rows and returns the
// requested page. Ties in the requested order are broken by id.
func (e *Engine) Search(ctx context.Context, tenantID uint, c Criteria) (*Result, error) {
	if err := c.Validate(e.validate); err != nil {
		return nil, err
	}

	rows, err := e.source.Rows(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	matched := Apply(rows, c.Filters()...)
	sortRows(matched, c.OrderBy, c.orderContext())

	limit := c.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	page := paginate(matched, c.Offset, limit)

	e.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"matched":   len(matched),
		"returned":  len(page),
	}).Debug("Search completed")

	return &Result{
		Properties: page,
		Total:      len(matched),
		Limit:      limit,
		Offset:     c.Offset,
	}, nil
}

// Scope returns every row matching the filters, ordered by id. No visibility
// filter is implied.
func (e *Engine) Scope(ctx context.Context, tenantID uint, filters ...Filter) ([]*models.ListedProperty, error) {
	rows, err := e.source.Rows(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	matched := Apply(rows, filters...)
	sortRows(matched, OrderID, "")
	return matched, nil
}

// Find looks up one row by asset id.
func (e *Engine) Find(ctx context.Context, tenantID, assetID uint) (*models.ListedProperty, error) {
	return e.source.Find(ctx, tenantID, assetID)
}

// orderContext is the price ordering refers to; empty means per row.
func (c *Criteria) orderContext() pricing.Context {
	ctx, _ := c.priceContext()
	return ctx
}

func sortRows(rows []*models.ListedProperty, orderBy string, ctx pricing.Context) {
	byID := func(i, j int) bool { return rows[i].ID < rows[j].ID }

	var less func(i, j int) bool
	switch orderBy {
	case OrderPriceAsc, OrderPriceDesc:
		desc := orderBy == OrderPriceDesc
		less = func(i, j int) bool {
			pi, oki := rowPrice(rows[i], ctx)
			pj, okj := rowPrice(rows[j], ctx)
			// Unpriced rows go last in both directions
			if oki != okj {
				return oki
			}
			if pi != pj {
				if desc {
					return pi > pj
				}
				return pi < pj
			}
			return byID(i, j)
		}
	case OrderBedroomsDesc:
		less = func(i, j int) bool {
			if rows[i].CountBedrooms != rows[j].CountBedrooms {
				return rows[i].CountBedrooms > rows[j].CountBedrooms
			}
			return byID(i, j)
		}
	case OrderNewest:
		less = func(i, j int) bool { return rows[i].ID > rows[j].ID }
	default:
		less = byID
	}
	sort.SliceStable(rows, less)
}

func rowPrice(p *models.ListedProperty, ctx pricing.Context) (int64, bool) {
	if ctx == "" {
		ctx = pricing.DefaultContext(p)
	}
	price, ok := pricing.ContextualPrice(p, ctx)
	if !ok || price.IsZero() {
		return 0, false
	}
	return price.AmountCents, true
}

func paginate(rows []*models.ListedProperty, offset, limit int) []*models.ListedProperty {
	if offset >= len(rows) {
		return []*models.ListedProperty{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
