package types

import "maps"

// ItemStack 一个物品格。Type 为空表示空格子。
type ItemStack struct {
	Type   string            `json:"type,omitempty"`
	Amount int               `json:"amount,omitempty"`
	Damage int               `json:"damage,omitempty"`
	Meta   map[string]string `json:"meta,omitempty"`
}

func (s ItemStack) IsEmpty() bool {
	return s.Type == "" || s.Amount <= 0
}

func (s ItemStack) Clone() ItemStack {
	s.Meta = maps.Clone(s.Meta)
	return s
}

type PotionEffect struct {
	Type      string `json:"type"`
	Amplifier int    `json:"amplifier"`
	Duration  int    `json:"duration"` // ticks
	Ambient   bool   `json:"ambient,omitempty"`
	Particles bool   `json:"particles,omitempty"`
}

// Balances 经济数据。HasBank 为 false 时银行余额不可用，只保存现金余额。
type Balances struct {
	Bank    float64 `json:"bank,omitempty"`
	HasBank bool    `json:"hasBank,omitempty"`
	Balance float64 `json:"balance"`
}

// PlayerState holds every transferable attribute of a player at one point in time.
type PlayerState struct {
	Inventory  []ItemStack `json:"inventory"`
	Armor      []ItemStack `json:"armor"`
	EnderChest []ItemStack `json:"enderChest"`

	Experience int     `json:"experience"` // total experience
	Level      int     `json:"level"`
	Exhaustion float32 `json:"exhaustion"`
	Saturation float32 `json:"saturation"`
	FoodLevel  int     `json:"foodLevel"`
	Health     float64 `json:"health"`

	CanFly      bool     `json:"canFly"`
	Flying      bool     `json:"flying"`
	DisplayName string   `json:"displayName"`
	GameMode    GameMode `json:"gameMode"`

	PotionEffects []PotionEffect `json:"potionEffects,omitempty"`
	Balances      *Balances      `json:"balances,omitempty"` // nil: 经济插件不可用
}

const (
	InventorySize  = 36
	ArmorSize      = 4
	EnderChestSize = 27
	MaxHealth      = 20.0
	MaxFoodLevel   = 20
	MaxSaturation  = 5.0
)

// DefaultPlayerState is what a player gets in a group they have never been in.
func DefaultPlayerState(mode GameMode) PlayerState {
	return PlayerState{
		Inventory:  make([]ItemStack, InventorySize),
		Armor:      make([]ItemStack, ArmorSize),
		EnderChest: make([]ItemStack, EnderChestSize),
		FoodLevel:  MaxFoodLevel,
		Saturation: MaxSaturation,
		Health:     MaxHealth,
		GameMode:   mode,
	}
}

func cloneItems(items []ItemStack) []ItemStack {
	if items == nil {
		return nil
	}
	out := make([]ItemStack, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// Clone returns a deep copy; nothing in the result aliases the receiver.
func (s PlayerState) Clone() PlayerState {
	out := s
	out.Inventory = cloneItems(s.Inventory)
	out.Armor = cloneItems(s.Armor)
	out.EnderChest = cloneItems(s.EnderChest)
	if s.PotionEffects != nil {
		out.PotionEffects = append([]PotionEffect(nil), s.PotionEffects...)
	}
	if s.Balances != nil {
		b := *s.Balances
		out.Balances = &b
	}
	return out
}
