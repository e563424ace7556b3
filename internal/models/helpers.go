package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateRollID() string {
	return fmt.Sprintf("roll_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateClientSeed() (string, error) {
	bytes := make([]byte, 16) // 128 bits of entropy
	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate client seed: %v", err)
	}
	return hex.EncodeToString(bytes), nil
}

func (rr *RollRequest) Validate() error {
	if rr.Amount < 1 {
		return fmt.Errorf("bet amount must be at least 1 cent")
	}
	if rr.Amount > 10000 {
		return fmt.Errorf("maximum bet amount is 10000 cents ($100)")
	}
	if rr.Strength < 0 || rr.Strength > 3 {
		return fmt.Errorf("throw strength must be between 0 and 3")
	}
	return nil
}

// ValidateTarget checks that a bet target leaves both sides of the wager
// possible for the configured die count.
func ValidateTarget(dieCount, target int) error {
	min, max := dieCount+1, 6*dieCount-1
	if target < min || target > max {
		return fmt.Errorf("target must be between %d and %d for %d dice", min, max, dieCount)
	}
	return nil
}

// sumWays returns how many of the 6^dieCount equally likely outcomes land
// on each sum.
func sumWays(dieCount int) map[int]int {
	ways := map[int]int{0: 1}
	for d := 0; d < dieCount; d++ {
		next := make(map[int]int)
		for sum, n := range ways {
			for face := 1; face <= 6; face++ {
				next[sum+face] += n
			}
		}
		ways = next
	}
	return ways
}

// RollMultiplier returns the payout multiplier for betting the dice sum
// lands over/under target, with a 1% house edge. Returns 0 when the bet can
// never win.
func RollMultiplier(dieCount, target int, over bool) float64 {
	total := 1.0
	for d := 0; d < dieCount; d++ {
		total *= 6
	}

	winning := 0
	for sum, n := range sumWays(dieCount) {
		if (over && sum > target) || (!over && sum < target) {
			winning += n
		}
	}
	if winning == 0 {
		return 0
	}

	const houseEdge = 0.01
	return (1 - houseEdge) * total / float64(winning)
}

func CalculatePayout(betAmount, multiplier float64) float64 {
	return betAmount * multiplier
}

func FormatCurrency(cents float64) string {
	return fmt.Sprintf("$%.2f", cents/100)
}

func NewWallet(userID int64) (*Wallet, error) {
	clientSeed, err := GenerateClientSeed()
	if err != nil {
		return nil, err
	}

	return &Wallet{
		UserID:     userID,
		Balance:    10000, // $100.00 starting balance, in cents
		ClientSeed: clientSeed,
		Nonce:      0,
	}, nil
}
