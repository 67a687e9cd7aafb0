package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalogs/product"
	"stockledger/internal/domain/catalogs/supplier"
	"stockledger/internal/domain/registers/stock"
	"stockledger/pkg/logger"
)

var tracer = otel.Tracer("stockledger/ledger")

// Defaults for Config.
const (
	DefaultMaxCommitAttempts = 3
	DefaultRetryBackoff      = 25 * time.Millisecond
)

// Config tunes the orchestrator.
type Config struct {
	// MaxCommitAttempts bounds how often a commit that lost a race is retried.
	MaxCommitAttempts int
	// RetryBackoff is the base delay between attempts; it grows linearly with jitter.
	RetryBackoff time.Duration
}

// Deps are the collaborators of the orchestrator. Events and Audit are optional.
type Deps struct {
	TxManager    tx.Manager
	Transactions Repository
	Movements    stock.Repository
	Products     product.Registry
	Suppliers    supplier.Directory
	Numerator    numerator.Generator
	Events       EventRecorder
	Audit        AuditRecorder
}

// Service is the transaction orchestrator. It is the only writer of the
// movement log.
type Service struct {
	txManager    tx.Manager
	transactions Repository
	movements    stock.Repository
	products     product.Registry
	suppliers    supplier.Directory
	numerator    numerator.Generator
	events       EventRecorder
	audit        AuditRecorder

	subscribers *domain.HookRegistry[Event]
	cfg         Config
	now         func() time.Time
}

// NewService creates the orchestrator.
func NewService(deps Deps, cfg Config) *Service {
	if cfg.MaxCommitAttempts <= 0 {
		cfg.MaxCommitAttempts = DefaultMaxCommitAttempts
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	return &Service{
		txManager:    deps.TxManager,
		transactions: deps.Transactions,
		movements:    deps.Movements,
		products:     deps.Products,
		suppliers:    deps.Suppliers,
		numerator:    deps.Numerator,
		events:       deps.Events,
		audit:        deps.Audit,
		subscribers:  domain.NewHookRegistry[Event](),
		cfg:          cfg,
		now:          time.Now,
	}
}

// Subscribe registers fn to be called after every committed transaction.
func (s *Service) Subscribe(fn Subscriber) {
	s.subscribers.On(domain.Hook[Event](fn))
}

// CreateTransaction validates req and commits it: header, items and one movement
// per item, all or nothing. Outbound lines are checked against the running
// balance under the product locks.
func (s *Service) CreateTransaction(ctx context.Context, req Request) (*entity.StockTransaction, error) {
	ctx, span := tracer.Start(ctx, "ledger.CreateTransaction", trace.WithAttributes(
		attribute.String("ledger.type", string(req.Type)),
		attribute.Int("ledger.lines", len(req.Lines)),
	))
	defer span.End()
	ctx = appctx.WithOperation(ctx, appctx.Operation{Name: "create", TransactionType: string(req.Type)})

	s.applyDefaults(ctx, &req)
	if err := req.Validate(); err != nil {
		return nil, s.finish(ctx, span, err)
	}

	productIDs := id.SortedUnique(req.ProductIDs())
	if err := s.resolveReferences(ctx, productIDs, req.SupplierID); err != nil {
		return nil, s.finish(ctx, span, err)
	}

	record, err := s.commitWithRetry(ctx, span, productIDs, func(map[id.ID]entity.StockBalance) (Request, error) {
		return req, nil
	})
	if err != nil {
		return nil, s.finish(ctx, span, err)
	}
	return record, nil
}

// ReconcileRequest applies physical counts.
type ReconcileRequest struct {
	Counts          []stock.AdjustmentInput
	TransactionDate time.Time
	Notes           string
	CreatedBy       string
}

// Reconcile turns physical counts into a single ADJUST transaction. The
// differences are computed under the product locks, so they are exact even
// when other transactions commit concurrently. When no count differs from the
// recorded stock nothing is written and the returned transaction is nil.
func (s *Service) Reconcile(ctx context.Context, req ReconcileRequest) (*entity.StockTransaction, []stock.AdjustmentPlan, error) {
	ctx, span := tracer.Start(ctx, "ledger.Reconcile", trace.WithAttributes(
		attribute.Int("ledger.counts", len(req.Counts)),
	))
	defer span.End()
	ctx = appctx.WithOperation(ctx, appctx.Operation{Name: "reconcile", TransactionType: string(entity.TransactionTypeAdjust)})

	if len(req.Counts) == 0 {
		return nil, nil, s.finish(ctx, span, apperror.NewFieldValidation("adjustments", "at least one entry is required"))
	}
	ids := make([]id.ID, len(req.Counts))
	for i, c := range req.Counts {
		if id.IsNil(c.ProductID) {
			return nil, nil, s.finish(ctx, span, apperror.NewFieldValidation(fmt.Sprintf("adjustments[%d].productId", i), "is required"))
		}
		ids[i] = c.ProductID
	}
	productIDs := id.SortedUnique(ids)
	if len(productIDs) != len(ids) {
		return nil, nil, s.finish(ctx, span, apperror.NewFieldValidation("adjustments", "each product may be counted once"))
	}
	if err := s.resolveReferences(ctx, productIDs, nil); err != nil {
		return nil, nil, s.finish(ctx, span, err)
	}

	base := Request{
		Type:            entity.TransactionTypeAdjust,
		TransactionDate: req.TransactionDate,
		Notes:           req.Notes,
		CreatedBy:       req.CreatedBy,
	}
	s.applyDefaults(ctx, &base)

	var plans []stock.AdjustmentPlan
	record, err := s.commitWithRetry(ctx, span, productIDs, func(balances map[id.ID]entity.StockBalance) (Request, error) {
		plans = make([]stock.AdjustmentPlan, len(req.Counts))
		for i, c := range req.Counts {
			plan, ok := stock.PlanAdjustment(c.ProductID, balances[c.ProductID].Quantity, c.ActualStock)
			if !ok {
				return Request{}, stock.AdjustmentOutOfRange(fmt.Sprintf("adjustments[%d].actualStock", i))
			}
			plans[i] = plan
		}
		r, err := AdjustmentRequest(plans, base.TransactionDate, base.Notes, base.CreatedBy)
		if err != nil {
			return Request{}, errNothingToAdjust
		}
		return r, nil
	})
	if errors.Is(err, errNothingToAdjust) {
		logger.Info(ctx, "stock counts match recorded stock, nothing adjusted", "products", len(productIDs))
		return nil, plans, nil
	}
	if err != nil {
		return nil, nil, s.finish(ctx, span, err)
	}
	return record, plans, nil
}

var errNothingToAdjust = errors.New("nothing to adjust")

// GetTransaction loads a committed transaction with its movements.
func (s *Service) GetTransaction(ctx context.Context, transactionID id.ID) (*entity.StockTransaction, error) {
	txn, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, s.fail(ctx, "get transaction", err)
	}
	movements, err := s.movements.TransactionMovements(ctx, transactionID)
	if err != nil {
		return nil, s.fail(ctx, "get transaction movements", err)
	}
	txn.Movements = movements
	return txn, nil
}

// ListTransactions lists committed transactions, newest first.
func (s *Service) ListTransactions(ctx context.Context, filter ListFilter) (domain.ListResult[entity.StockTransaction], error) {
	if filter.Type != nil && !filter.Type.IsValid() {
		return domain.ListResult[entity.StockTransaction]{}, invalidType()
	}
	if filter.Offset < 0 {
		return domain.ListResult[entity.StockTransaction]{}, apperror.NewFieldValidation("offset", "must not be negative")
	}
	if filter.FromDate != nil && filter.ToDate != nil && filter.ToDate.Before(*filter.FromDate) {
		return domain.ListResult[entity.StockTransaction]{}, apperror.NewFieldValidation("toDate", "must not be before fromDate")
	}
	filter.Limit = domain.NormalizeLimit(filter.Limit)

	items, total, err := s.transactions.List(ctx, filter)
	if err != nil {
		return domain.ListResult[entity.StockTransaction]{}, s.fail(ctx, "list transactions", err)
	}
	if items == nil {
		items = []entity.StockTransaction{}
	}
	return domain.ListResult[entity.StockTransaction]{
		Items:      items,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

func (s *Service) applyDefaults(ctx context.Context, req *Request) {
	if req.TransactionDate.IsZero() {
		req.TransactionDate = s.now()
	}
	req.TransactionDate = req.TransactionDate.UTC()
	if req.CreatedBy == "" {
		req.CreatedBy = appctx.Actor(ctx)
	}
}

// resolveReferences checks every product and the supplier before the write unit opens.
func (s *Service) resolveReferences(ctx context.Context, productIDs []id.ID, supplierID *id.ID) error {
	known, err := s.products.GetProducts(ctx, productIDs)
	if err != nil {
		return s.fail(ctx, "resolve products", err)
	}
	for _, pid := range productIDs {
		if _, ok := known[pid]; !ok {
			return apperror.NewProductNotFound(pid.String())
		}
	}

	if supplierID == nil {
		return nil
	}
	ok, err := s.suppliers.Exists(ctx, *supplierID)
	if err != nil {
		return s.fail(ctx, "resolve supplier", err)
	}
	if !ok {
		return apperror.NewFieldValidation("supplierId", "unknown supplier")
	}
	return nil
}

type buildFunc func(balances map[id.ID]entity.StockBalance) (Request, error)

func (s *Service) commitWithRetry(ctx context.Context, span trace.Span, productIDs []id.ID, build buildFunc) (*entity.StockTransaction, error) {
	for attempt := 1; ; attempt++ {
		record, err := s.commit(appctx.WithAttempt(ctx, attempt), productIDs, build)
		if err == nil {
			span.SetAttributes(
				attribute.String("ledger.reference_number", record.ReferenceNumber),
				attribute.Int("ledger.attempts", attempt),
			)
			logger.Info(ctx, "stock transaction committed",
				"transaction_id", record.ID,
				"reference_number", record.ReferenceNumber,
				"type", record.Type,
				"items", len(record.Items),
				"attempt", attempt,
			)
			s.subscribers.Run(ctx, NewEvent(record))
			return record, nil
		}

		if !apperror.IsConcurrentModification(err) || attempt >= s.cfg.MaxCommitAttempts {
			return nil, err
		}
		logger.Warn(ctx, "stock transaction lost a race, retrying",
			"attempt", attempt,
			"max_attempts", s.cfg.MaxCommitAttempts,
			"error", err,
		)
		if waitErr := s.backoff(ctx, attempt); waitErr != nil {
			return nil, err
		}
	}
}

func (s *Service) backoff(ctx context.Context, attempt int) error {
	if s.cfg.RetryBackoff == 0 {
		return ctx.Err()
	}
	base := s.cfg.RetryBackoff * time.Duration(attempt)
	delay := base/2 + rand.N(base/2+1)

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// commit runs one attempt inside a write unit: lock, read balances, build the
// movements on top of the running balances, then persist everything.
func (s *Service) commit(ctx context.Context, productIDs []id.ID, build buildFunc) (*entity.StockTransaction, error) {
	var record *entity.StockTransaction

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.movements.LockProducts(ctx, productIDs); err != nil {
			return fmt.Errorf("lock products: %w", err)
		}
		balances, err := s.movements.GetBalances(ctx, productIDs)
		if err != nil {
			return fmt.Errorf("get balances: %w", err)
		}

		req, err := build(balances)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		txn := &entity.StockTransaction{
			ID:              id.New(),
			Type:            req.Type,
			TransactionDate: req.TransactionDate,
			SupplierID:      req.SupplierID,
			Notes:           req.Notes,
			CreatedBy:       req.CreatedBy,
			CreatedAt:       now,
			Items:           make([]entity.TransactionItem, 0, len(req.Lines)),
			Movements:       make([]entity.StockMovement, 0, len(req.Lines)),
		}

		running := make(map[id.ID]entity.StockBalance, len(balances))
		for pid, b := range balances {
			running[pid] = b
		}

		for i, line := range req.Lines {
			pid := line.Product()
			bal, ok := running[pid]
			if !ok {
				bal = entity.StockBalance{ProductID: pid}
			}
			if req.Type.Outbound() && bal.Quantity < line.Requested() {
				return apperror.NewInsufficientStock(pid.String(), line.Requested(), bal.Quantity).
					WithDetail("field", fmt.Sprintf("items[%d]", i))
			}

			if !bal.CanApply(line.Change()) {
				return apperror.NewFieldValidation(fmt.Sprintf("items[%d].quantity", i),
					fmt.Sprintf("takes the stock of %s out of range (current %d)", pid, bal.Quantity))
			}

			item := line.item()
			item.ID = id.New()
			item.TransactionID = txn.ID
			item.LineNo = i + 1

			mv, next := bal.Apply(line.Change(), now)
			mv.ProductID = pid
			mv.TransactionID = txn.ID
			mv.TransactionItemID = item.ID
			mv.MovementType = req.Type
			next.ProductID = pid
			running[pid] = next

			txn.Items = append(txn.Items, item)
			txn.Movements = append(txn.Movements, mv)
		}

		number, err := s.numerator.GetNextNumber(ctx,
			numerator.DefaultConfig(req.Type.ReferencePrefix()),
			&numerator.Options{Strategy: numerator.StrategyStrict},
			now,
		)
		if err != nil {
			return fmt.Errorf("reference number: %w", err)
		}
		txn.ReferenceNumber = number

		if err := s.transactions.Create(ctx, txn); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		if err := s.movements.AppendMovements(ctx, txn.Movements); err != nil {
			return fmt.Errorf("append movements: %w", err)
		}

		if s.events != nil {
			if err := s.events.Record(ctx, NewEvent(txn)); err != nil {
				return fmt.Errorf("record event: %w", err)
			}
		}
		if s.audit != nil {
			if err := s.audit.RecordTransaction(ctx, txn); err != nil {
				return fmt.Errorf("record audit: %w", err)
			}
		}

		record = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// finish records err on the span and normalizes it for the caller.
func (s *Service) finish(ctx context.Context, span trace.Span, err error) error {
	err = s.fail(ctx, "create transaction", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// fail passes AppErrors through and hides anything else behind a generic error.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr
	}
	logger.Error(ctx, "ledger storage failure", "op", op, "error", err)
	return apperror.NewInternal(fmt.Errorf("%s: %w", op, err))
}
