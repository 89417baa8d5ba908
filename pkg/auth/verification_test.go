package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/tendant/simple-shop-auth/pkg/domain"
)

type verificationCustomers struct {
	customer domain.Customer
	marked   []domain.VerificationChannel
}

func (v *verificationCustomers) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	if id != v.customer.ID {
		return nil, domain.ErrCustomerNotFound
	}
	c := v.customer
	return &c, nil
}

func (v *verificationCustomers) MarkVerified(_ context.Context, _ int64, channel domain.VerificationChannel) error {
	v.marked = append(v.marked, channel)
	switch channel {
	case domain.ChannelPhone:
		v.customer.IsPhoneVerified = true
	case domain.ChannelEmail:
		v.customer.IsEmailVerified = true
	}
	return nil
}

type recordingSender struct {
	to, code string
}

func (r *recordingSender) SendVerificationCode(to, code string) error {
	r.to, r.code = to, code
	return nil
}

func newTestVerification(c domain.Customer) (*VerificationService, *verificationCustomers, *recordingSender) {
	store := &verificationCustomers{customer: c}
	sender := &recordingSender{}
	svc := NewVerificationService(VerificationConfig{Secret: []byte("verification-secret")}, store, sender, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc, store, sender
}

var bothChannels = domain.BusinessSettings{PhoneVerification: true, EmailVerification: true}

func TestVerificationService_EmailRoundTrip(t *testing.T) {
	svc, store, sender := newTestVerification(domain.Customer{ID: 5, Email: "a@example.com", IsPhoneVerified: true})
	ctx := context.Background()

	channel, err := svc.Send(ctx, bothChannels, 5)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if channel != domain.ChannelEmail {
		t.Errorf("channel = %s, want email", channel)
	}
	if sender.to != "a@example.com" || len(sender.code) != 6 {
		t.Fatalf("sent to %q code %q", sender.to, sender.code)
	}

	if _, err := svc.Confirm(ctx, bothChannels, 5, sender.code); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if len(store.marked) != 1 || store.marked[0] != domain.ChannelEmail {
		t.Errorf("marked = %v, want [email]", store.marked)
	}
	if _, err := svc.Send(ctx, bothChannels, 5); !errors.Is(err, domain.ErrNothingToVerify) {
		t.Errorf("Send() after confirm error = %v, want ErrNothingToVerify", err)
	}
}

func TestVerificationService_PhoneFirst(t *testing.T) {
	svc, _, sender := newTestVerification(domain.Customer{ID: 5, Email: "a@example.com"})

	channel, err := svc.Send(context.Background(), bothChannels, 5)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if channel != domain.ChannelPhone {
		t.Errorf("channel = %s, want phone", channel)
	}
	if sender.code != "" {
		t.Error("phone codes must not go out by email")
	}
}

func TestVerificationService_WrongCode(t *testing.T) {
	svc, store, _ := newTestVerification(domain.Customer{ID: 5, IsPhoneVerified: true})

	_, err := svc.Confirm(context.Background(), bothChannels, 5, "000000")
	code, _ := totp.GenerateCodeCustom(svc.secret(5, domain.ChannelEmail), svc.now(), svc.opts())
	if code == "000000" {
		t.Skip("generated code collides with the wrong guess")
	}
	if !errors.Is(err, domain.ErrInvalidVerificationCode) {
		t.Errorf("Confirm() error = %v, want ErrInvalidVerificationCode", err)
	}
	if len(store.marked) != 0 {
		t.Errorf("marked = %v, want none", store.marked)
	}
}

func TestVerificationService_SecretsDifferPerChannel(t *testing.T) {
	svc, _, _ := newTestVerification(domain.Customer{ID: 5})
	if svc.secret(5, domain.ChannelEmail) == svc.secret(5, domain.ChannelPhone) {
		t.Error("email and phone secrets should differ")
	}
	if svc.secret(5, domain.ChannelEmail) == svc.secret(6, domain.ChannelEmail) {
		t.Error("secrets should differ per customer")
	}
}
