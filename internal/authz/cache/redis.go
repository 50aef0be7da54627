package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	defaultRedisPrefix = "accessd:authz"
	flushScanCount     = 500
)

// putScript writes ARGV[3] to KEYS[3] only while the global (KEYS[1]) and per-user (KEYS[2])
// versions still equal ARGV[1] and ARGV[2].
var putScript = redis.NewScript(`
local g = redis.call('GET', KEYS[1]) or '0'
local u = redis.call('GET', KEYS[2]) or '0'
if g ~= ARGV[1] or u ~= ARGV[2] then
	return 0
end
if tonumber(ARGV[4]) > 0 then
	redis.call('SET', KEYS[3], ARGV[3], 'PX', ARGV[4])
else
	redis.call('SET', KEYS[3], ARGV[3])
end
return 1
`)

// Redis is a backend shared between accessd instances.
//
// Keys embed a global version and, for user entries, a per-user version:
// Flush bumps the global version, DeleteUser bumps the user's version.
// A Put only lands while both versions are unchanged since the Get that issued its stamp.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis returns a Redis backend. ttl 0 keeps entries until invalidated.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) versionKey() string {
	return r.prefix + ":version"
}

func (r *Redis) userVersionKey(key Key) string {
	id, _ := key.UserID()

	return r.prefix + ":uver:" + strconv.FormatUint(id, 10)
}

func (r *Redis) dataKey(global, user string, key Key) string {
	return fmt.Sprintf("%s:v%s:%s:%s", r.prefix, global, key, user)
}

func versionOf(v any) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return "0"
	}

	return s
}

func (r *Redis) versions(ctx context.Context, key Key) (string, string, error) {
	vals, err := r.client.MGet(ctx, r.versionKey(), r.userVersionKey(key)).Result()
	if err != nil {
		return "", "", err
	}

	return versionOf(vals[0]), versionOf(vals[1]), nil
}

// Get implements Backend.
func (r *Redis) Get(ctx context.Context, key Key) (Value, string, bool, error) {
	var v Value

	global, user, err := r.versions(ctx, key)
	if err != nil {
		return v, "", false, err
	}

	stamp := global + ":" + user

	payload, err := r.client.Get(ctx, r.dataKey(global, user, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, stamp, false, nil
	}

	if err != nil {
		return v, "", false, err
	}

	if err = json.Unmarshal(payload, &v); err != nil {
		return Value{}, "", false, err
	}

	return v, stamp, true, nil
}

// Put implements Backend.
func (r *Redis) Put(ctx context.Context, key Key, v Value, stamp string) error {
	global, user, ok := strings.Cut(stamp, ":")
	if !ok {
		return nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	keys := []string{r.versionKey(), r.userVersionKey(key), r.dataKey(global, user, key)}

	return putScript.Run(ctx, r.client, keys, global, user, raw, r.ttl.Milliseconds()).Err()
}

// DeleteUser implements Backend.
func (r *Redis) DeleteUser(ctx context.Context, userID uint64) error {
	key := UserKey(userID)

	global, user, err := r.versions(ctx, key)
	if err != nil {
		return err
	}

	if err = r.client.Incr(ctx, r.userVersionKey(key)).Err(); err != nil {
		return err
	}

	return r.client.Del(ctx, r.dataKey(global, user, key)).Err()
}

// Flush implements Backend. Entries of the previous version are removed best effort.
func (r *Redis) Flush(ctx context.Context) error {
	old, err := r.client.Get(ctx, r.versionKey()).Result()
	if errors.Is(err, redis.Nil) {
		old = "0"
	} else if err != nil {
		return err
	}

	if err = r.client.Incr(ctx, r.versionKey()).Err(); err != nil {
		return err
	}

	iter := r.client.Scan(ctx, 0, r.prefix+":v"+old+":*", flushScanCount).Iterator()

	var stale []string

	for iter.Next(ctx) {
		stale = append(stale, iter.Val())
	}

	if err = iter.Err(); err == nil && len(stale) > 0 {
		err = r.client.Del(ctx, stale...).Err()
	}

	if err != nil {
		log.Warn().Err(err).Str("version", old).Msg("authorization cache: stale entries left for expiry")
	}

	return nil
}
