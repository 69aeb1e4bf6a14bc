package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func WorkerStatsKey(workerID uuid.UUID) string {
	return fmt.Sprintf("worker:stats:%s", workerID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
