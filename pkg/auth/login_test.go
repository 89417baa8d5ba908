package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tendant/simple-shop-auth/pkg/domain"
)

// memoryCustomers is an in-memory CustomerStore with compare-and-set semantics.
type memoryCustomers struct {
	mu        sync.Mutex
	customers map[int64]domain.Customer
	writes    int
	// interfere, when set, mutates the stored row just before the next swap.
	interfere func(c *domain.Customer)
}

func newMemoryCustomers(cs ...domain.Customer) *memoryCustomers {
	m := &memoryCustomers{customers: make(map[int64]domain.Customer)}
	for _, c := range cs {
		m.customers[c.ID] = c
	}
	return m
}

func (m *memoryCustomers) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return &c, nil
}

func (m *memoryCustomers) GetByPhoneOrEmail(_ context.Context, identifier string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.Phone == identifier || c.Email == identifier {
			c := c
			return &c, nil
		}
	}
	return nil, domain.ErrCustomerNotFound
}

func (m *memoryCustomers) CompareAndSwapLockout(_ context.Context, id int64, expected, next domain.LockoutState) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return false, nil
	}
	if m.interfere != nil {
		m.interfere(&c)
		m.interfere = nil
		m.customers[id] = c
	}
	if !c.Lockout().Equal(expected) {
		return false, nil
	}
	c.ApplyLockout(next)
	c.UpdatedAt = time.Now()
	m.customers[id] = c
	m.writes++
	return true, nil
}

func (m *memoryCustomers) state(id int64) domain.LockoutState {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.customers[id]
	return c.Lockout()
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testCustomer(t *testing.T, password string) domain.Customer {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword() error = %v", err)
	}
	return domain.Customer{
		ID:              1,
		Name:            "Jane",
		Phone:           "+15550100",
		Email:           "jane@example.com",
		PasswordHash:    string(hash),
		IsActive:        true,
		IsPhoneVerified: true,
		IsEmailVerified: true,
	}
}

func newTestLoginService(store CustomerStore, clock *fakeClock) *LoginService {
	s := NewLoginService(store, nil)
	s.now = clock.Now
	return s
}

func TestLoginService_ThreeFailuresBlock(t *testing.T) {
	store := newMemoryCustomers(testCustomer(t, "secret"))
	clock := &fakeClock{t: time.Now()}
	svc := newTestLoginService(store, clock)
	settings := domain.BusinessSettings{MaxLoginHit: 3, TempBlockTime: 5 * time.Second}
	ctx := context.Background()

	for i, wantCount := range []int{1, 2} {
		_, err := svc.Authenticate(ctx, settings, "jane@example.com", "wrong")
		if !errors.Is(err, domain.ErrCredentialMismatch) {
			t.Fatalf("attempt %d: error = %v, want ErrCredentialMismatch", i+1, err)
		}
		if got := store.state(1); got.LoginHitCount != wantCount || got.IsTempBlocked {
			t.Fatalf("attempt %d: state = %+v, want open with count %d", i+1, got, wantCount)
		}
	}

	_, err := svc.Authenticate(ctx, settings, "jane@example.com", "wrong")
	if !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("attempt 3: error = %v, want ErrTooManyAttempts", err)
	}
	got := store.state(1)
	if !got.IsTempBlocked || got.TempBlockTime == nil || !got.TempBlockTime.Equal(clock.Now()) {
		t.Errorf("attempt 3: state = %+v, want blocked at %v", got, clock.Now())
	}
}

func TestLoginService_BlockedRejectsCorrectPassword(t *testing.T) {
	c := testCustomer(t, "secret")
	clock := &fakeClock{t: time.Now()}
	blockedAt := clock.Now().Add(-2 * time.Second)
	c.LoginHitCount = 5
	c.IsTempBlocked = true
	c.TempBlockTime = &blockedAt

	store := newMemoryCustomers(c)
	svc := newTestLoginService(store, clock)
	settings := domain.BusinessSettings{MaxLoginHit: 5, TempBlockTime: 5 * time.Second}

	_, err := svc.Authenticate(context.Background(), settings, "+15550100", "secret")

	var lockErr *domain.LockoutError
	if !errors.As(err, &lockErr) || !errors.Is(err, domain.ErrTemporarilyBlocked) {
		t.Fatalf("error = %v, want temporarily blocked", err)
	}
	if lockErr.Remaining != 3*time.Second {
		t.Errorf("Remaining = %v, want 3s", lockErr.Remaining)
	}
	if store.writes != 0 {
		t.Errorf("writes = %d, want no state mutation while blocked", store.writes)
	}
}

func TestLoginService_ExpiredBlockReopensThenSucceeds(t *testing.T) {
	c := testCustomer(t, "secret")
	clock := &fakeClock{t: time.Now()}
	blockedAt := clock.Now().Add(-6 * time.Second)
	c.LoginHitCount = 5
	c.IsTempBlocked = true
	c.TempBlockTime = &blockedAt

	store := newMemoryCustomers(c)
	svc := newTestLoginService(store, clock)
	settings := domain.BusinessSettings{MaxLoginHit: 5, TempBlockTime: 5 * time.Second}
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, settings, "jane@example.com", "secret")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("first attempt after expiry: error = %v, want generic credential failure", err)
	}
	if got := store.state(1); !got.Equal(domain.LockoutState{}) {
		t.Fatalf("state after expiry = %+v, want reset", got)
	}

	customer, err := svc.Authenticate(ctx, settings, "jane@example.com", "secret")
	if err != nil {
		t.Fatalf("second attempt: error = %v, want success", err)
	}
	if customer.ID != 1 {
		t.Errorf("customer.ID = %d, want 1", customer.ID)
	}
}

func TestLoginService_SuccessResetsCounter(t *testing.T) {
	c := testCustomer(t, "secret")
	c.LoginHitCount = 3
	store := newMemoryCustomers(c)
	svc := newTestLoginService(store, &fakeClock{t: time.Now()})

	customer, err := svc.Authenticate(context.Background(), domain.DefaultBusinessSettings(), "jane@example.com", "secret")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if customer.LoginHitCount != 0 {
		t.Errorf("returned LoginHitCount = %d, want 0", customer.LoginHitCount)
	}
	if got := store.state(1); !got.Equal(domain.LockoutState{}) {
		t.Errorf("stored state = %+v, want reset", got)
	}
}

func TestLoginService_NotFound(t *testing.T) {
	store := newMemoryCustomers(testCustomer(t, "secret"))
	svc := newTestLoginService(store, &fakeClock{t: time.Now()})

	_, err := svc.Authenticate(context.Background(), domain.DefaultBusinessSettings(), "ghost@example.com", "secret")
	if !errors.Is(err, domain.ErrCustomerNotFound) || !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("error = %v, want ErrCustomerNotFound collapsing to ErrInvalidCredentials", err)
	}
	if store.writes != 0 {
		t.Errorf("writes = %d, want 0", store.writes)
	}
}

func TestLoginService_InactiveAccountCountsAsFailure(t *testing.T) {
	c := testCustomer(t, "secret")
	c.IsActive = false
	store := newMemoryCustomers(c)
	svc := newTestLoginService(store, &fakeClock{t: time.Now()})

	_, err := svc.Authenticate(context.Background(), domain.DefaultBusinessSettings(), "jane@example.com", "secret")
	if !errors.Is(err, domain.ErrInactiveAccount) || !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("error = %v, want ErrInactiveAccount", err)
	}
	if got := store.state(1); got.LoginHitCount != 1 {
		t.Errorf("LoginHitCount = %d, want 1", got.LoginHitCount)
	}
}

func TestLoginService_VerificationGates(t *testing.T) {
	tests := []struct {
		name        string
		phoneOK     bool
		emailOK     bool
		settings    domain.BusinessSettings
		wantChannel domain.VerificationChannel
	}{
		{
			name:        "phone unverified",
			phoneOK:     false,
			emailOK:     false,
			settings:    domain.BusinessSettings{PhoneVerification: true, EmailVerification: true},
			wantChannel: domain.ChannelPhone,
		},
		{
			name:        "email unverified",
			phoneOK:     true,
			emailOK:     false,
			settings:    domain.BusinessSettings{PhoneVerification: true, EmailVerification: true},
			wantChannel: domain.ChannelEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCustomer(t, "secret")
			c.IsPhoneVerified = tt.phoneOK
			c.IsEmailVerified = tt.emailOK
			c.LoginHitCount = 2
			store := newMemoryCustomers(c)
			svc := newTestLoginService(store, &fakeClock{t: time.Now()})

			_, err := svc.Authenticate(context.Background(), tt.settings, "jane@example.com", "wrong")

			var vErr *domain.VerificationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %v, want *VerificationError", err)
			}
			if vErr.Channel != tt.wantChannel || vErr.CustomerID != 1 {
				t.Errorf("VerificationError = %+v, want channel %s for customer 1", vErr, tt.wantChannel)
			}
			if store.writes != 0 || store.state(1).LoginHitCount != 2 {
				t.Error("verification gate must not touch lockout counters")
			}
		})
	}
}

func TestLoginService_RetriesOnConcurrentUpdate(t *testing.T) {
	store := newMemoryCustomers(testCustomer(t, "secret"))
	store.interfere = func(c *domain.Customer) {
		// Another request recorded a failure first.
		c.LoginHitCount = 1
	}
	svc := newTestLoginService(store, &fakeClock{t: time.Now()})

	_, err := svc.Authenticate(context.Background(), domain.DefaultBusinessSettings(), "jane@example.com", "wrong")
	if !errors.Is(err, domain.ErrCredentialMismatch) {
		t.Fatalf("error = %v, want ErrCredentialMismatch", err)
	}
	if got := store.state(1).LoginHitCount; got != 2 {
		t.Errorf("LoginHitCount = %d, want 2 (both failures counted)", got)
	}
}

func TestLoginService_ConcurrentFailuresAreNotLost(t *testing.T) {
	store := newMemoryCustomers(testCustomer(t, "secret"))
	svc := NewLoginService(store, nil)
	svc.retries = 100
	settings := domain.BusinessSettings{MaxLoginHit: 100, TempBlockTime: time.Minute}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Authenticate(context.Background(), settings, "jane@example.com", "wrong")
		}()
	}
	wg.Wait()

	if got := store.state(1).LoginHitCount; got != 10 {
		t.Errorf("LoginHitCount = %d, want 10", got)
	}
}
