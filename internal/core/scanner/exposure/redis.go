package exposure

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"neoscanner/internal/core/lib/network/dialer"
)

// RedisChecker 不带 AUTH 执行 PING
type RedisChecker struct {
	dialer dialer.Dialer
}

func NewRedisChecker(d dialer.Dialer) *RedisChecker {
	return &RedisChecker{dialer: orDirect(d)}
}

func (c *RedisChecker) Name() string {
	return "redis"
}

func (c *RedisChecker) Ports() []int {
	return []int{6379}
}

func (c *RedisChecker) Check(ctx context.Context, host string, port int) (bool, string, error) {
	timeout := remaining(ctx, 3*time.Second)
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(host, strconv.Itoa(port)),
		Dialer:       c.dialer.DialContext,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   -1, // 不重试
		PoolSize:     1,
		Protocol:     2, // RESP2，老版本不认识 HELLO
	})
	defer client.Close()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		// NOAUTH Authentication required / WRONGPASS
		if containsAny(err.Error(), "noauth", "authentication required", "wrongpass", "invalid password") {
			return false, "authentication required", nil
		}
		return false, "", classify(err)
	}

	return true, "PING answered without AUTH: " + pong, nil
}
