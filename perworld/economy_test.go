package perworld

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sealdice/perworld/perworld/types"
)

func TestMemoryEconomyRestore(t *testing.T) {
	as := assert.New(t)
	eco := NewMemoryEconomy()
	p := newFakePlayer("alex", "world", types.GameModeSurvival)

	eco.Deposit(p.id, 10)
	eco.OpenBank(p.id, 500)

	as.NoError(eco.Restore(p, types.Balances{Balance: 3}))
	b, err := eco.Balances(p)
	as.NoError(err)
	as.Equal(types.Balances{Bank: 500, HasBank: true, Balance: 3}, b, "bank untouched without saved bank data")

	as.NoError(eco.Restore(p, types.Balances{Bank: 7, HasBank: true, Balance: 1}))
	b, _ = eco.Balances(p)
	as.Equal(types.Balances{Bank: 7, HasBank: true, Balance: 1}, b)
}
