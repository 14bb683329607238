package models

import "time"

// Account is the durable player record. Chips is the liquid balance used for
// wagers and never goes below zero; Bank may go negative down to the loan limit.
type Account struct {
	Name      string `json:"name" redis:"name"`
	Secret    string `json:"-" redis:"secret"`
	Chips     int64  `json:"chips" redis:"chips"`
	Bank      int64  `json:"bank" redis:"bank"`
	Origin    string `json:"-" redis:"origin"`
	LastLogin int64  `json:"last_login" redis:"last_login"`
	CreatedAt int64  `json:"created_at" redis:"created_at"`
}

func NewAccount(name, secretHash, origin string, chips int64, now time.Time) *Account {
	return &Account{
		Name:      name,
		Secret:    secretHash,
		Chips:     chips,
		Origin:    origin,
		LastLogin: now.Unix(),
		CreatedAt: now.Unix(),
	}
}

// IsDebtor reports an outstanding loan.
func (a *Account) IsDebtor() bool { return a.Bank < 0 }

type Standing struct {
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}
