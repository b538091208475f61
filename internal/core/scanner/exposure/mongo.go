package exposure

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"neoscanner/internal/core/lib/network/dialer"
)

// MongoChecker 不带凭据列出数据库
type MongoChecker struct {
	dialer dialer.Dialer
}

func NewMongoChecker(d dialer.Dialer) *MongoChecker {
	return &MongoChecker{dialer: orDirect(d)}
}

func (c *MongoChecker) Name() string {
	return "mongodb"
}

func (c *MongoChecker) Ports() []int {
	return []int{27017}
}

func (c *MongoChecker) Check(ctx context.Context, host string, port int) (bool, string, error) {
	timeout := remaining(ctx, defaultCheckTimeout)
	opts := options.Client().
		SetHosts([]string{net.JoinHostPort(host, strconv.Itoa(port))}).
		SetDirect(true).
		SetDialer(c.dialer).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetRetryReads(false).
		SetRetryWrites(false)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return false, "", classify(err)
	}
	defer client.Disconnect(context.Background())

	names, err := client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		// Unauthorized / requires authentication (code 13)
		if containsAny(err.Error(), "unauthorized", "requires authentication", "authentication failed") {
			return false, "authentication required", nil
		}
		return false, "", classify(err)
	}

	return true, fmt.Sprintf("listed %d databases without credentials", len(names)), nil
}
