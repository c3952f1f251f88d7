package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "1.53", FormatMoney(Round(MustMoney("1.53"))))
	assert.Equal(t, "0.13", FormatMoney(Round(MustMoney("0.125"))))
	assert.Equal(t, "-0.13", FormatMoney(Round(MustMoney("-0.125"))))
	assert.Equal(t, "10.00", FormatMoney(MoneyFromInt(10)))
}

func TestOrZero(t *testing.T) {
	assert.True(t, OrZero(nil).IsZero())
	assert.Equal(t, "3", OrZero(MoneyPtr(MustMoney("3"))).String())
}
