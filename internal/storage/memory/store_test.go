package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

func newCustomer(id, code string, active bool) *domain.Customer {
	return &domain.Customer{
		ID:               id,
		Name:             "customer " + id,
		AccessCode:       code,
		PurchaseDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SubscriptionDays: 30,
		IsActive:         active,
		CreatedAt:        time.Now().UTC(),
	}
}

func TestAccessCodeUniqueness(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.SaveCustomer(newCustomer("c1", "111111", true)))
	err := s.SaveCustomer(newCustomer("c2", "111111", true))
	assert.ErrorIs(t, err, storage.ErrAccessCodeExists)

	exists, err := s.AccessCodeExists("111111")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetActiveCustomerByAccessCode(t *testing.T) {
	s := NewStore()

	account := &domain.CredentialAccount{
		ID:             "a1",
		Email:          "shared@example.com",
		Password:       "secret",
		MailboxAddress: "a1@mail.subshare.local",
	}
	require.NoError(t, s.SaveAccount(account))

	active := newCustomer("c1", "111111", true)
	accountID := "a1"
	profile := 3
	active.NetflixAccountID = &accountID
	active.ProfileNumber = &profile
	require.NoError(t, s.SaveCustomer(active))
	require.NoError(t, s.SaveCustomer(newCustomer("c2", "222222", false)))

	t.Run("active customer with account", func(t *testing.T) {
		c, a, err := s.GetActiveCustomerByAccessCode("111111")
		require.NoError(t, err)
		assert.Equal(t, "c1", c.ID)
		require.NotNil(t, a)
		assert.Equal(t, "shared@example.com", a.Email)
	})

	t.Run("inactive customer is indistinguishable from missing", func(t *testing.T) {
		_, _, errInactive := s.GetActiveCustomerByAccessCode("222222")
		_, _, errMissing := s.GetActiveCustomerByAccessCode("999999")
		assert.ErrorIs(t, errInactive, storage.ErrCustomerNotFound)
		assert.Equal(t, errMissing, errInactive)
	})
}

func TestDeactivateCustomersReleasesSlots(t *testing.T) {
	s := NewStore()

	accountID := "a1"
	profile := 1
	c := newCustomer("c1", "111111", true)
	c.NetflixAccountID = &accountID
	c.ProfileNumber = &profile
	require.NoError(t, s.SaveCustomer(c))

	require.NoError(t, s.DeactivateCustomers([]string{"c1", "missing"}))

	got, err := s.GetCustomer("c1")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Nil(t, got.NetflixAccountID)
	assert.Nil(t, got.ProfileNumber)
}

func TestExtendSubscriptionKeepsPurchaseAnchor(t *testing.T) {
	s := NewStore()
	c := newCustomer("c1", "111111", true)
	require.NoError(t, s.SaveCustomer(c))

	require.NoError(t, s.ExtendCustomerSubscription("c1", 30))

	got, err := s.GetCustomer("c1")
	require.NoError(t, err)
	assert.Equal(t, 60, got.SubscriptionDays)
	assert.Equal(t, c.PurchaseDate, got.PurchaseDate)
}

func TestUpdateCustomerReindexesAccessCode(t *testing.T) {
	s := NewStore()
	c := newCustomer("c1", "111111", true)
	require.NoError(t, s.SaveCustomer(c))

	c.AccessCode = "333333"
	require.NoError(t, s.UpdateCustomer(c))

	_, _, err := s.GetActiveCustomerByAccessCode("111111")
	assert.ErrorIs(t, err, storage.ErrCustomerNotFound)
	got, _, err := s.GetActiveCustomerByAccessCode("333333")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
}

func TestArtifactSupersedeAndExpiry(t *testing.T) {
	s := NewStore()
	now := time.Now().UTC()

	first := &domain.VerificationArtifact{
		AccountID: "a1",
		Kind:      domain.ArtifactCode,
		Value:     "123456",
		FetchedAt: now,
		ExpiresAt: now.Add(15 * time.Minute),
	}
	require.NoError(t, s.SaveArtifact(first))

	second := &domain.VerificationArtifact{
		AccountID: "a1",
		Kind:      domain.ArtifactLink,
		Value:     "https://example.com/verify",
		FetchedAt: now.Add(time.Minute),
		ExpiresAt: now.Add(16 * time.Minute),
	}
	require.NoError(t, s.SaveArtifact(second))

	got, err := s.GetArtifact("a1", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.ArtifactLink, got.Kind, "newer fetch supersedes the old artifact")

	_, err = s.GetArtifact("a1", now.Add(time.Hour))
	assert.ErrorIs(t, err, storage.ErrArtifactNotFound, "expired artifacts are invisible")
}

func TestInboundMessageWindow(t *testing.T) {
	s := NewStore()
	base := time.Now().UTC()

	for i, age := range []time.Duration{time.Minute, 30 * time.Minute, 2 * time.Hour} {
		require.NoError(t, s.SaveInboundMessage(&domain.InboundMessage{
			ID:             string(rune('a' + i)),
			MailboxAddress: "Box@Mail.Local",
			FromAddress:    "info@account.netflix.com",
			ReceivedAt:     base.Add(-age),
		}))
	}

	msgs, err := s.ListInboundMessagesSince("box@mail.local", base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, msgs, 2, "lookup is case-insensitive and window-bounded")
	assert.True(t, msgs[0].ReceivedAt.After(msgs[1].ReceivedAt), "newest first")

	deleted, err := s.DeleteInboundMessagesBefore(base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}
