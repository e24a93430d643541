package challenge

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// verifyScript consumes the challenge only when the supplied code matches,
// atomically, so a concurrent Issue superseding the entry mid-verification
// can never make Verify succeed against a code the caller did not supply.
var verifyScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v == ARGV[1] then
	redis.call('DEL', KEYS[1])
	return 1
end
return 0
`)

// RedisStore keeps challenges in redis so multiple instances share one
// challenge per principal. Expiry rides on the key TTL.
type RedisStore struct {
	client *redis.Client
	prefix string

	codeLength int
	validity   time.Duration
}

func NewRedisStore(client *redis.Client, codeLength int, validity time.Duration) *RedisStore {
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}
	if validity <= 0 {
		validity = DefaultValidity
	}
	return &RedisStore{
		client:     client,
		prefix:     "otp:",
		codeLength: codeLength,
		validity:   validity,
	}
}

func (s *RedisStore) key(principal string) string {
	return s.prefix + principal
}

func (s *RedisStore) Issue(ctx context.Context, principal string) (string, error) {
	code, err := generateCode(s.codeLength)
	if err != nil {
		return "", err
	}
	// SET overwrites a prior unconsumed challenge, superseding it
	if err := s.client.Set(ctx, s.key(principal), code, s.validity).Err(); err != nil {
		return "", fmt.Errorf("storing challenge: %w", err)
	}
	return code, nil
}

func (s *RedisStore) Verify(ctx context.Context, principal, code string) (bool, error) {
	res, err := verifyScript.Run(ctx, s.client, []string{s.key(principal)}, code).Int()
	if err != nil {
		return false, fmt.Errorf("verifying challenge: %w", err)
	}
	return res == 1, nil
}
