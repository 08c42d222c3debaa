package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for stored passwords.
const DefaultCost = 12

// MaxPasswordBytes is bcrypt's input limit; longer passwords are rejected, not truncated.
const MaxPasswordBytes = 72

// dummies holds one throwaway hash per cost, so a lookup miss costs as much as a mismatch.
var dummies sync.Map

func dummyFor(cost int) []byte {
	if v, ok := dummies.Load(cost); ok {
		return v.([]byte)
	}
	b, _ := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), cost)
	v, _ := dummies.LoadOrStore(cost, b)
	return v.([]byte)
}

type PasswordHasher struct{ Cost int }

func (h PasswordHasher) cost() int {
	if h.Cost == 0 {
		return DefaultCost
	}
	return h.Cost
}

func (h PasswordHasher) Hash(pw string) (string, error) {
	cost := h.cost()
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return "", bcrypt.InvalidCostError(cost)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Check reports whether pw matches hashed. An empty hash never matches.
func (h PasswordHasher) Check(pw, hashed string) bool {
	if hashed == "" {
		h.Burn(pw)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}

// Burn performs one throwaway comparison at the configured cost.
func (h PasswordHasher) Burn(pw string) {
	_ = bcrypt.CompareHashAndPassword(dummyFor(h.cost()), []byte(pw))
}
