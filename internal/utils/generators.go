package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateBookingCode returns a human-presentable booking code like
// BK1756646400X7Q4P. The timestamp prefix keeps codes roughly sortable and
// the random suffix makes collisions within a second vanishingly unlikely;
// the unique constraint on booking_code is the real guard.
func GenerateBookingCode() string {
	var sb strings.Builder
	for i := 0; i < 5; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			n = big.NewInt(time.Now().UnixNano() % int64(len(codeAlphabet)))
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return fmt.Sprintf("BK%d%s", time.Now().Unix(), sb.String())
}
