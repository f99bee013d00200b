// Package testutil repositorios en memoria para tests de la capa de aplicación.
// Implementan los mismos puertos que infrastructure/postgres, incluyendo el lock por carrito.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
	"github.com/jhoicas/b2b-storefront-api/internal/domain/repository"
)

// MemStore base de datos en memoria. Los campos Fail* inyectan fallos.
type MemStore struct {
	mu        sync.Mutex
	tenants   map[string]*entity.Tenant
	companies map[string]*entity.Company
	users     map[string]*entity.CompanyUser
	carts     map[string]*entity.Cart
	items     map[string][]*entity.CartItem
	logs      []*entity.ActivityLog
	events    map[string]*entity.Event
	nextLogID int64

	locks sync.Map // clave de carrito → *sync.Mutex

	// AnonymousCreates cuenta cuántas empresas centinela se crearon.
	AnonymousCreates atomic.Int32

	FailAppend          error // ActivityLogRepository.Append
	FailGetByEmail      error // CompanyUserRepository.GetByEmail
	FailReplace         error // CartRepository.ReplaceItems
	FailEnsureAnonymous error // CompanyRepository.EnsureAnonymous
}

// NewMemStore crea un store vacío.
func NewMemStore() *MemStore {
	return &MemStore{
		tenants:   map[string]*entity.Tenant{},
		companies: map[string]*entity.Company{},
		users:     map[string]*entity.CompanyUser{},
		carts:     map[string]*entity.Cart{},
		items:     map[string][]*entity.CartItem{},
		events:    map[string]*entity.Event{},
	}
}

// AddTenant registra una tienda activa. El puntero devuelto es el almacenado: modificarlo
// cambia lo que ven los repositorios.
func (s *MemStore) AddTenant(shopDomain string) *entity.Tenant {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	t := &entity.Tenant{
		ID:         uuid.NewString(),
		Name:       shopDomain,
		ShopDomain: shopDomain,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.tenants[t.ID] = t
	return t
}

// AddCompany registra una empresa B2B.
func (s *MemStore) AddCompany(tenantID, name string) *entity.Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	c := &entity.Company{ID: uuid.NewString(), TenantID: tenantID, Name: name, Status: "active", CreatedAt: now, UpdatedAt: now}
	s.companies[c.ID] = c
	return c
}

// AddCompanyUser registra un miembro. customerID 0 ⇒ sin enlace con el proveedor.
func (s *MemStore) AddCompanyUser(tenantID, companyID, email string, customerID int64) *entity.CompanyUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	u := &entity.CompanyUser{ID: uuid.NewString(), TenantID: tenantID, CompanyID: companyID, Email: email, Status: "active", CreatedAt: now, UpdatedAt: now}
	if customerID != 0 {
		id := customerID
		u.ProviderCustomerID = &id
	}
	s.users[u.ID] = u
	return u
}

// Logs registros de auditoría de la tienda, en orden de inserción.
func (s *MemStore) Logs(tenantID string) []*entity.ActivityLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.ActivityLog
	for _, l := range s.logs {
		if l.TenantID == tenantID {
			out = append(out, l)
		}
	}
	return out
}

// LogsOfType filtra Logs por tipo.
func (s *MemStore) LogsOfType(tenantID, eventType string) []*entity.ActivityLog {
	var out []*entity.ActivityLog
	for _, l := range s.Logs(tenantID) {
		if l.EventType == eventType {
			out = append(out, l)
		}
	}
	return out
}

// CartCount número de carritos de la tienda.
func (s *MemStore) CartCount(tenantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.carts {
		if c.TenantID == tenantID {
			n++
		}
	}
	return n
}

// AnonymousCompanies empresas centinela de la tienda.
func (s *MemStore) AnonymousCompanies(tenantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.companies {
		if c.TenantID == tenantID && c.IsAnonymous {
			n++
		}
	}
	return n
}

// EventCount eventos persistidos de la tienda.
func (s *MemStore) EventCount(tenantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.TenantID == tenantID {
			n++
		}
	}
	return n
}

// Repositorios.

func (s *MemStore) Tenants() repository.TenantRepository           { return tenantRepo{s} }
func (s *MemStore) Companies() repository.CompanyRepository        { return companyRepo{s} }
func (s *MemStore) CompanyUsers() repository.CompanyUserRepository { return userRepo{s} }
func (s *MemStore) Carts() repository.CartRepository               { return cartRepo{s} }
func (s *MemStore) ActivityLogs() repository.ActivityLogRepository { return logRepo{s} }
func (s *MemStore) Events() repository.EventRepository             { return eventRepo{s} }

// RunCart serializa por (tienda, token) igual que el advisory lock de postgres.
// Sin rollback: un fallo a mitad de fn deja lo ya escrito.
func (s *MemStore) RunCart(ctx context.Context, tenantID, cartToken string, fn func(carts repository.CartRepository, companies repository.CompanyRepository) error) error {
	m, _ := s.locks.LoadOrStore(tenantID+":"+cartToken, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s.Carts(), s.Companies())
}

type tenantRepo struct{ s *MemStore }

func (r tenantRepo) GetByDomain(_ context.Context, d string) (*entity.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tenants {
		if strings.EqualFold(t.ShopDomain, d) || (t.CustomDomain != "" && strings.EqualFold(t.CustomDomain, d)) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r tenantRepo) GetByID(_ context.Context, id string) (*entity.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tenants[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

type companyRepo struct{ s *MemStore }

func (r companyRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.companies[id]; ok && c.TenantID == tenantID {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r companyRepo) EnsureAnonymous(_ context.Context, tenantID string) (*entity.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailEnsureAnonymous != nil {
		return nil, r.s.FailEnsureAnonymous
	}
	for _, c := range r.s.companies {
		if c.TenantID == tenantID && c.IsAnonymous {
			cp := *c
			return &cp, nil
		}
	}
	now := time.Now().UTC()
	c := &entity.Company{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Name:        entity.AnonymousCompanyName,
		IsAnonymous: true,
		Status:      "active",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.s.companies[c.ID] = c
	r.s.AnonymousCreates.Add(1)
	cp := *c
	return &cp, nil
}

type userRepo struct{ s *MemStore }

func (r userRepo) find(match func(u *entity.CompanyUser) bool) *entity.CompanyUser {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (r userRepo) GetByID(_ context.Context, tenantID, id string) (*entity.CompanyUser, error) {
	return r.find(func(u *entity.CompanyUser) bool { return u.TenantID == tenantID && u.ID == id }), nil
}

func (r userRepo) GetByProviderCustomerID(_ context.Context, tenantID string, customerID int64) (*entity.CompanyUser, error) {
	return r.find(func(u *entity.CompanyUser) bool {
		return u.TenantID == tenantID && u.ProviderCustomerID != nil && *u.ProviderCustomerID == customerID
	}), nil
}

func (r userRepo) GetByEmail(_ context.Context, tenantID, email string) (*entity.CompanyUser, error) {
	if r.s.FailGetByEmail != nil {
		return nil, r.s.FailGetByEmail
	}
	return r.find(func(u *entity.CompanyUser) bool { return u.TenantID == tenantID && strings.EqualFold(u.Email, email) }), nil
}

type cartRepo struct{ s *MemStore }

func (r cartRepo) GetByToken(_ context.Context, tenantID, cartToken string) (*entity.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.carts {
		if c.TenantID == tenantID && c.CartToken == cartToken {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r cartRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.carts[id]; ok && c.TenantID == tenantID {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r cartRepo) Create(_ context.Context, cart *entity.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.carts {
		if c.TenantID == cart.TenantID && c.CartToken == cart.CartToken {
			return fmt.Errorf("carrito duplicado %s", cart.CartToken)
		}
	}
	if cart.ID == "" {
		cart.ID = uuid.NewString()
	}
	cp := *cart
	r.s.carts[cart.ID] = &cp
	return nil
}

func (r cartRepo) Update(_ context.Context, cart *entity.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.carts[cart.ID]; !ok {
		return fmt.Errorf("carrito %s no existe", cart.ID)
	}
	cp := *cart
	r.s.carts[cart.ID] = &cp
	return nil
}

func (r cartRepo) ListItems(_ context.Context, cartID string) ([]*entity.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.CartItem, 0, len(r.s.items[cartID]))
	for _, it := range r.s.items[cartID] {
		cp := *it
		out = append(out, &cp)
	}
	return out, nil
}

func (r cartRepo) ReplaceItems(_ context.Context, cartID string, items []*entity.CartItem) error {
	if r.s.FailReplace != nil {
		return r.s.FailReplace
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := make([]*entity.CartItem, 0, len(items))
	for _, it := range items {
		cp := *it
		cp.CartID = cartID
		if cp.ID == "" {
			cp.ID = uuid.NewString()
		}
		stored = append(stored, &cp)
	}
	r.s.items[cartID] = stored
	return nil
}

func (r cartRepo) List(_ context.Context, f repository.CartFilter) ([]*entity.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Cart
	for _, c := range r.s.carts {
		if c.TenantID != f.TenantID || (f.CompanyID != "" && c.CompanyID != f.CompanyID) || (f.Status != "" && c.Status != f.Status) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

type logRepo struct{ s *MemStore }

func (r logRepo) Append(_ context.Context, l *entity.ActivityLog) error {
	if r.s.FailAppend != nil {
		return r.s.FailAppend
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextLogID++
	l.ID = r.s.nextLogID
	cp := *l
	r.s.logs = append(r.s.logs, &cp)
	return nil
}

func (r logRepo) List(_ context.Context, f repository.ActivityLogFilter) ([]*entity.ActivityLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.ActivityLog
	for i := len(r.s.logs) - 1; i >= 0; i-- {
		l := r.s.logs[i]
		if l.TenantID != f.TenantID || (f.EventType != "" && l.EventType != f.EventType) {
			continue
		}
		if f.CartID != "" && (l.CartID == nil || *l.CartID != f.CartID) {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	return page(out, f.Limit, f.Offset), nil
}

type eventRepo struct{ s *MemStore }

func (r eventRepo) Insert(_ context.Context, e *entity.Event) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[e.ID]; ok {
		return false, nil
	}
	cp := *e
	r.s.events[e.ID] = &cp
	return true, nil
}

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
