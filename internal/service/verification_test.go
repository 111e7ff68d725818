package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage/memory"
)

func TestVerificationService_FetchByAccessCode(t *testing.T) {
	store := memory.NewStore()
	service := NewVerificationService(store, nil)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	accountID := "acc-1"
	require.NoError(t, store.SaveAccount(&domain.CredentialAccount{
		ID:             accountID,
		Email:          "shared@example.com",
		Password:       "secret123",
		MailboxAddress: "box1@verify.example.com",
	}))
	seedCustomer(t, store, &domain.Customer{
		ID: "c1", Name: "Holder", AccessCode: "123456",
		PurchaseDate:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		SubscriptionDays: 90, IsActive: true,
		NetflixAccountID: &accountID,
	})

	t.Run("验证邮件尚未到达时返回软性未找到", func(t *testing.T) {
		result, err := service.FetchByAccessCode("123456", now)

		require.NoError(t, err)
		assert.False(t, result.Found)
		assert.Nil(t, result.Artifact)
	})

	t.Run("从邮件正文提取数字验证码", func(t *testing.T) {
		require.NoError(t, store.SaveInboundMessage(&domain.InboundMessage{
			ID:             "m1",
			MailboxAddress: "box1@verify.example.com",
			FromAddress:    "info@provider.example",
			Subject:        "Your sign-in code",
			Text:           "Enter this code to sign in: 8 2 4 7\nUse 82471 within 15 minutes.",
			ReceivedAt:     now.Add(-2 * time.Minute),
		}))

		result, err := service.FetchByAccessCode("123456", now)

		require.NoError(t, err)
		require.True(t, result.Found)
		assert.Equal(t, domain.ArtifactCode, result.Artifact.Kind)
		assert.Equal(t, "82471", result.Artifact.Value)
		assert.Equal(t, accountID, result.Artifact.AccountID)
		assert.Equal(t, now.Add(domain.DefaultArtifactTTL), result.Artifact.ExpiresAt)
	})

	t.Run("新抓取覆盖同一账号的旧产物", func(t *testing.T) {
		require.NoError(t, store.SaveInboundMessage(&domain.InboundMessage{
			ID:             "m2",
			MailboxAddress: "box1@verify.example.com",
			FromAddress:    "info@provider.example",
			Subject:        "Update your primary location",
			HTML:           `<a href="https://www.provider.example/account/update-primary-location?nftoken=abc123">Confirm</a>`,
			ReceivedAt:     now.Add(-1 * time.Minute),
		}))
		require.NoError(t, store.SaveArtifact(&domain.VerificationArtifact{
			AccountID: accountID,
			Kind:      domain.ArtifactLink,
			Value:     "https://www.provider.example/account/update-primary-location?nftoken=abc123",
			FetchedAt: now,
			ExpiresAt: now.Add(domain.DefaultArtifactTTL),
		}))

		artifact, err := store.GetArtifact(accountID, now)
		require.NoError(t, err)
		assert.Equal(t, domain.ArtifactLink, artifact.Kind)
	})

	t.Run("存在未过期产物时直接复用", func(t *testing.T) {
		result, err := service.FetchByAccessCode("123456", now.Add(5*time.Minute))

		require.NoError(t, err)
		require.True(t, result.Found)
		assert.Equal(t, domain.ArtifactLink, result.Artifact.Kind)
	})

	t.Run("无效访问码与未绑定账号统一拒绝", func(t *testing.T) {
		seedCustomer(t, store, &domain.Customer{
			ID: "c2", Name: "Unbound", AccessCode: "654321",
			PurchaseDate:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			SubscriptionDays: 90, IsActive: true,
		})

		_, errMissing := service.FetchByAccessCode("999999", now)
		_, errUnbound := service.FetchByAccessCode("654321", now)

		assert.ErrorIs(t, errMissing, ErrAccessDenied)
		assert.ErrorIs(t, errUnbound, ErrAccessDenied)
	})

	t.Run("格式错误的访问码在查询前被拒绝", func(t *testing.T) {
		_, err := service.FetchByAccessCode("12ab56", now)
		assert.ErrorIs(t, err, domain.ErrInvalidAccessCode)
	})
}

func TestVerificationService_FetchByAccountID(t *testing.T) {
	store := memory.NewStore()
	service := NewVerificationService(store, nil)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("未托管邮箱的账号无法抓取", func(t *testing.T) {
		require.NoError(t, store.SaveAccount(&domain.CredentialAccount{
			ID:       "bare",
			Email:    "bare@example.com",
			Password: "secret123",
		}))

		_, err := service.FetchByAccountID("bare", now)
		assert.ErrorIs(t, err, ErrNoMailbox)
	})

	t.Run("时间窗口之外的邮件被忽略", func(t *testing.T) {
		require.NoError(t, store.SaveAccount(&domain.CredentialAccount{
			ID:             "boxed",
			Email:          "boxed@example.com",
			Password:       "secret123",
			MailboxAddress: "box2@verify.example.com",
		}))
		require.NoError(t, store.SaveInboundMessage(&domain.InboundMessage{
			ID:             "old",
			MailboxAddress: "box2@verify.example.com",
			Subject:        "Your sign-in code",
			Text:           "Use 12345 now",
			ReceivedAt:     now.Add(-time.Hour),
		}))

		result, err := service.FetchByAccountID("boxed", now)

		require.NoError(t, err)
		assert.False(t, result.Found)
	})
}

func TestVerificationService_PruneMessages(t *testing.T) {
	store := memory.NewStore()
	service := NewVerificationService(store, nil)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveInboundMessage(&domain.InboundMessage{
		ID: "stale", MailboxAddress: "x@verify.example.com",
		ReceivedAt: now.Add(-48 * time.Hour),
	}))
	require.NoError(t, store.SaveInboundMessage(&domain.InboundMessage{
		ID: "fresh", MailboxAddress: "x@verify.example.com",
		ReceivedAt: now.Add(-time.Minute),
	}))

	count, err := service.PruneMessages(now, 24*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
