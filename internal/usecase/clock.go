package usecase

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// 注文コード（ULID）と決済参照（UUID）の採番
type IDGenerator interface {
	OrderCode(t time.Time) string
	TxnRef() string
}

type defaultIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

func NewIDGenerator() IDGenerator {
	return &defaultIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// 同じミリ秒内でも単調増加する
func (g *defaultIDGenerator) OrderCode(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}

func (g *defaultIDGenerator) TxnRef() string {
	return uuid.NewString()
}
