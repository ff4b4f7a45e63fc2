package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	// Counter for fallback sequential IDs
	idCounter uint64
)

// GenerateCampaignID generates a campaign ID with a timestamp prefix.
func GenerateCampaignID() string {
	timestamp := time.Now().Format("20060102-150405")
	b := make([]byte, 4)
	_, err := rand.Read(b)
	if err != nil {
		count := atomic.AddUint64(&idCounter, 1)
		return fmt.Sprintf("campaign-%s-%x", timestamp, count)
	}
	return fmt.Sprintf("campaign-%s-%s", timestamp, hex.EncodeToString(b))
}
