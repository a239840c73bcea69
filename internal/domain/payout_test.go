package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGroupingKey(t *testing.T) {
	key, err := ParseGroupingKey([]string{"person", "Organisasjon", " grad "})
	require.NoError(t, err)
	assert.True(t, key.Has(GroupByPerson))
	assert.True(t, key.Has(GroupByEmployer))
	assert.True(t, key.Has(GroupByGrad))
	assert.False(t, key.Has(GroupBySource))

	_, err = ParseGroupingKey([]string{"person", "favourite-colour"})
	assert.Error(t, err)
}

func TestGroupingKeyProjection(t *testing.T) {
	org := "987654321"
	payout := PayoutPeriod{
		PersonIdent: "12345678901",
		OrgNumber:   &org,
		Grad:        100,
	}
	other := PayoutPeriod{
		PersonIdent: "12345678901",
		OrgNumber:   &org,
		Grad:        50,
	}

	full := DefaultGroupingKey()
	assert.NotEqual(t, full.Projection(payout), full.Projection(other))

	withoutGrad := GroupingKey{GroupByPerson: {}, GroupByEmployer: {}}
	assert.Equal(t, withoutGrad.Projection(payout), withoutGrad.Projection(other))
}

func TestTagSet(t *testing.T) {
	tags := NewTagSet("Spleis", "Infotrygd")
	tags.Add(NewTagSet("Vedtak", "Spleis"))
	assert.Equal(t, []string{"Infotrygd", "Spleis", "Vedtak"}, tags.Sorted())
}

func TestSettlementPayoutPeriods(t *testing.T) {
	org := "987654321"
	s := Settlement{
		CorrelationID: "corr-1",
		PersonIdent:   "12345678901",
		OrgNumber:     &org,
		EmployerLines: []PaymentLine{
			{PaymentReference: "REF-AG", Fom: date(2023, 1, 1), Tom: date(2023, 1, 20), Grad: 100},
		},
		PersonLines: []PaymentLine{
			{PaymentReference: "REF-P", Fom: date(2023, 1, 21), Tom: date(2023, 1, 31), Grad: 50},
		},
	}

	payouts := s.PayoutPeriods()
	require.Len(t, payouts, 2)

	assert.Equal(t, "REF-AG", payouts[0].PaymentReference)
	require.NotNil(t, payouts[0].OrgNumber)
	assert.Equal(t, org, *payouts[0].OrgNumber)

	assert.Equal(t, "REF-P", payouts[1].PaymentReference)
	assert.Nil(t, payouts[1].OrgNumber)
	assert.Equal(t, 50, payouts[1].Grad)
}
