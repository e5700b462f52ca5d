package finance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

func TestNewZeroPendingPayment(t *testing.T) {
	tx := NewZeroPendingPayment(valueobject.EUR)
	assert.Equal(t, TransactionTypePendingPayment, tx.Type)
	assert.True(t, tx.Amount.IsZero())
	assert.Equal(t, valueobject.EUR, tx.Currency)
	assert.Nil(t, tx.EncumbranceLinkage())
}

func TestEncumbranceLinkage(t *testing.T) {
	encID := uuid.New()
	tx := &Transaction{
		Type:            TransactionTypePendingPayment,
		AwaitingPayment: &AwaitingPayment{EncumbranceID: encID, ReleaseEncumbrance: true},
	}
	got := tx.EncumbranceLinkage()
	require.NotNil(t, got)
	assert.Equal(t, encID, *got)
}

func TestConversionApply(t *testing.T) {
	t.Run("identity", func(t *testing.T) {
		c := IdentityConversion(valueobject.USD)
		assert.True(t, c.IsIdentity())
		m, _ := valueobject.NewMoneyFromFloat(7, valueobject.USD)
		assert.True(t, c.Apply(m).Equals(m))
	})

	t.Run("fixed rate", func(t *testing.T) {
		c := NewConversion(valueobject.EUR, valueobject.USD, decimal.NewFromFloat(1.2))
		m, _ := valueobject.NewMoneyFromFloat(10, valueobject.EUR)
		got := c.Apply(m)
		assert.Equal(t, valueobject.USD, got.Currency())
		assert.True(t, got.Amount().Equal(decimal.NewFromInt(12)))
	})

	t.Run("target currency passes through", func(t *testing.T) {
		c := NewConversion(valueobject.EUR, valueobject.USD, decimal.NewFromFloat(1.2))
		m, _ := valueobject.NewMoneyFromFloat(10, valueobject.USD)
		assert.True(t, c.Apply(m).Equals(m))
	})
}

func TestTransactionTypeIsValid(t *testing.T) {
	for _, tt := range []TransactionType{
		TransactionTypeEncumbrance, TransactionTypePendingPayment,
		TransactionTypePayment, TransactionTypeCredit,
	} {
		assert.True(t, tt.IsValid())
	}
	assert.False(t, TransactionType("TRANSFER").IsValid())
}
