package perworld

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sealdice/perworld/perworld/types"
)

type account struct {
	bank    float64
	hasBank bool
	balance float64
}

// MemoryEconomy 内存经济实现，供调试和测试使用
type MemoryEconomy struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*account
}

func NewMemoryEconomy() *MemoryEconomy {
	return &MemoryEconomy{accounts: map[uuid.UUID]*account{}}
}

func (e *MemoryEconomy) get(id uuid.UUID) *account {
	acc, ok := e.accounts[id]
	if !ok {
		acc = &account{}
		e.accounts[id] = acc
	}
	return acc
}

func (e *MemoryEconomy) Deposit(id uuid.UUID, amount float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.get(id).balance += amount
}

func (e *MemoryEconomy) OpenBank(id uuid.UUID, amount float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	acc := e.get(id)
	acc.hasBank = true
	acc.bank = amount
}

func (e *MemoryEconomy) Balances(p types.Player) (types.Balances, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	acc := e.get(p.UniqueID())
	return types.Balances{Bank: acc.bank, HasBank: acc.hasBank, Balance: acc.balance}, nil
}

// Restore sets the balances. The bank balance is only touched when the saved
// data carried one.
func (e *MemoryEconomy) Restore(p types.Player, b types.Balances) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	acc := e.get(p.UniqueID())
	acc.balance = b.Balance
	if b.HasBank {
		acc.hasBank = true
		acc.bank = b.Bank
	}
	return nil
}
