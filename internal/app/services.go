package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dapur-erp/dapur-erp/internal/ap"
	"github.com/dapur-erp/dapur-erp/internal/audit"
	"github.com/dapur-erp/dapur-erp/internal/events"
	"github.com/dapur-erp/dapur-erp/internal/inventory"
	"github.com/dapur-erp/dapur-erp/internal/masterdata/suppliers"
	"github.com/dapur-erp/dapur-erp/internal/notification"
	"github.com/dapur-erp/dapur-erp/internal/platform/db"
	"github.com/dapur-erp/dapur-erp/internal/procurement"
	"github.com/dapur-erp/dapur-erp/internal/rbac"
	"github.com/dapur-erp/dapur-erp/internal/sequence"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// Stores groups the persistence adapters behind the services.
type Stores struct {
	Procurement   procurement.Repository
	Invoices      ap.Repository
	Notifications notification.Repository
	Suppliers     suppliers.Repository
	Items         inventory.ItemStore
	Sequence      sequence.Allocator
	Tx            db.Transactor
	Audit         procurement.AuditPort
	AuditTrail    audit.Reader
	Idempotency   ap.IdempotencyPort
}

// PostgresStores wires the PostgreSQL repositories and the Redis sequence
// allocator.
func PostgresStores(pool *pgxpool.Pool, redisClient *redis.Client, cfg *Config) Stores {
	prefix := ""
	if cfg != nil {
		prefix = cfg.SequencePrefix
	}
	return Stores{
		Procurement:   procurement.NewRepository(pool),
		Invoices:      ap.NewRepository(pool),
		Notifications: notification.NewRepository(pool),
		Suppliers:     suppliers.NewRepository(pool),
		Items:         inventory.NewRepository(pool),
		Sequence:      sequence.NewRedisAllocator(redisClient, prefix),
		Tx:            db.NewTransactor(pool),
		Audit:         shared.NewAuditLogger(pool),
		AuditTrail:    audit.NewRepository(pool),
		Idempotency:   shared.NewIdempotencyStore(pool),
	}
}

// MemoryStores wires in-process stores seeded with demo master data. Writes
// are not transactional.
func MemoryStores() Stores {
	auditLog := &shared.MemoryAuditLog{}
	return Stores{
		Procurement:   procurement.NewMemoryRepository(),
		Invoices:      ap.NewMemoryRepository(),
		Notifications: notification.NewMemoryRepository(),
		Suppliers: suppliers.NewMemoryRepository(
			suppliers.Supplier{ID: 1, Code: "SUP-001", Name: "CV Sayur Segar", Active: true},
			suppliers.Supplier{ID: 2, Code: "SUP-002", Name: "UD Beras Makmur", Active: true},
		),
		Items: inventory.NewMemoryStore(
			inventory.Item{ID: 1, SKU: "BRS-01", Name: "Beras", Unit: "kg", Category: "pokok"},
			inventory.Item{ID: 2, SKU: "MYK-01", Name: "Minyak Goreng", Unit: "liter", Category: "pokok"},
			inventory.Item{ID: 3, SKU: "TLR-01", Name: "Telur", Unit: "kg", Category: "protein"},
		),
		Sequence:    sequence.NewMemoryAllocator(),
		Tx:          db.NoopTransactor{},
		Audit:       auditLog,
		AuditTrail:  audit.NewMemoryReader(auditLog),
		Idempotency: shared.NewMemoryIdempotencyStore(),
	}
}

// Services holds the wired engine.
type Services struct {
	Bus           *events.Bus
	Procurement   *procurement.Service
	Invoices      *ap.Service
	Notifications *notification.Service
	Audit         *audit.Service
	RBAC          *rbac.Service
}

// ServiceDeps configures NewServices.
type ServiceDeps struct {
	Config    *Config
	Stores    Stores
	Deliverer notification.Deliverer
	Metrics   procurement.Metrics
	Logger    *slog.Logger
}

// NewServices builds the services and subscribes them on one event bus.
func NewServices(deps ServiceDeps) (*Services, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	procCfg, err := deps.Config.Procurement()
	if err != nil {
		return nil, err
	}
	termDays := ap.DefaultTermDays
	if deps.Config != nil && deps.Config.InvoiceTermDays > 0 {
		termDays = deps.Config.InvoiceTermDays
	}
	st := deps.Stores
	bus := events.NewBus()

	invoices := ap.NewService(ap.Deps{
		Repo:        st.Invoices,
		Tx:          st.Tx,
		Sequence:    st.Sequence,
		Events:      bus,
		Idempotency: st.Idempotency,
		Audit:       st.Audit,
		Logger:      logger,
		TermDays:    termDays,
	})
	proc := procurement.NewService(procurement.Deps{
		Repo:      st.Procurement,
		Tx:        st.Tx,
		Suppliers: suppliers.NewService(st.Suppliers),
		Items:     inventory.NewService(st.Items),
		Invoices:  invoices,
		Sequence:  st.Sequence,
		Events:    bus,
		Audit:     st.Audit,
		Metrics:   deps.Metrics,
		Logger:    logger,
		Config:    procCfg,
	})
	notes := notification.NewService(st.Notifications, deps.Deliverer, logger)

	notes.Subscribe(bus)
	bus.Subscribe(events.NameInvoicePaid, "procurement", proc.HandleInvoicePaid)

	return &Services{
		Bus:           bus,
		Procurement:   proc,
		Invoices:      invoices,
		Notifications: notes,
		Audit:         audit.NewService(st.AuditTrail),
		RBAC:          rbac.NewService(),
	}, nil
}
