package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ikkim/gomarketplace-cart/internal/db"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "@GoMarketPlace:cartItems"

// runContract exercises the behaviour every backend shares.
func runContract(t *testing.T, store KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	_, found, err := store.GetItem(ctx, testKey)
	require.NoError(t, err)
	assert.False(t, found, "fresh store must report absent")

	require.NoError(t, store.SetItem(ctx, testKey, `[{"id":"p1"}]`))
	val, found, err := store.GetItem(ctx, testKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"id":"p1"}]`, val)

	require.NoError(t, store.SetItem(ctx, testKey, `[]`))
	val, _, err = store.GetItem(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, `[]`, val, "set replaces the whole value")

	require.NoError(t, store.RemoveItem(ctx, testKey))
	_, found, err = store.GetItem(ctx, testKey)
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = store.GetItem(ctx, " ")
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.ErrorIs(t, store.SetItem(ctx, "", "x"), ErrEmptyKey)
}

func TestMemoryStore_Contract(t *testing.T) {
	runContract(t, NewMemoryStore())
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMemoryStore().SetItem(ctx, testKey, "[]")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGormStore_Contract(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	runContract(t, NewGormStore(testDB))
}

func TestGormStore_UpsertKeepsSingleRow(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	store := NewGormStore(testDB)
	ctx := context.Background()
	for _, v := range []string{"[1]", "[2]", "[3]"} {
		require.NoError(t, store.SetItem(ctx, testKey, v))
	}

	var count int64
	require.NoError(t, testDB.Table("kv_entries").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	val, _, err := store.GetItem(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, "[3]", val)
}

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStore_Contract(t *testing.T) {
	runContract(t, NewRedisStore(newFakeRedis()))
}

func TestRedisStore_PropagatesErrors(t *testing.T) {
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	store := NewRedisStore(fake)

	_, _, err := store.GetItem(context.Background(), testKey)
	assert.ErrorContains(t, err, "connection refused")
	assert.Error(t, store.SetItem(context.Background(), testKey, "[]"))
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	putErr  error
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(v))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = string(body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Storage_Contract(t *testing.T) {
	fake := &fakeS3{objects: make(map[string]string)}
	runContract(t, newS3Storage(fake, "bucket", "/carts/"))
}

func TestS3Storage_ObjectLayout(t *testing.T) {
	fake := &fakeS3{objects: make(map[string]string)}
	store := newS3Storage(fake, "bucket", "carts")

	require.NoError(t, store.SetItem(context.Background(), testKey, "[]"))
	assert.Contains(t, fake.objects, "bucket/carts/"+testKey+".json")
}

func TestS3Storage_PutFailure(t *testing.T) {
	fake := &fakeS3{objects: make(map[string]string), putErr: errors.New("access denied")}
	store := newS3Storage(fake, "bucket", "")

	err := store.SetItem(context.Background(), testKey, "[]")
	assert.ErrorContains(t, err, "access denied")
}
