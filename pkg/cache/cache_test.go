package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect("redis://" + mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	_, err = Connect("::not a url")
	assert.Error(t, err)
}

func TestRedis_Proto(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Connect("redis://" + mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	r := New(client)

	msg, err := structpb.NewStruct(map[string]interface{}{"totalPosts": 3})
	require.NoError(t, err)
	r.SetProto("stats", msg, time.Minute)

	var back structpb.Struct
	require.True(t, r.GetProto("stats", &back))
	assert.Equal(t, float64(3), back.Fields["totalPosts"].GetNumberValue())

	mr.Set("garbage", "\xff\xff\xff")
	assert.False(t, r.GetProto("garbage", &structpb.Struct{}))

	r.Del("stats", "garbage")
	assert.False(t, mr.Exists("stats"))
	assert.False(t, r.GetProto("stats", &back))
}

func TestRedis_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Connect("redis://" + mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	r := New(client)
	r.SetProto("k", &structpb.Struct{}, time.Second)
	assert.True(t, mr.Exists("k"))
	mr.FastForward(2 * time.Second)

	assert.False(t, r.GetProto("k", &structpb.Struct{}))
}

func TestRedis_NilIsNoop(t *testing.T) {
	var r *Redis
	assert.Nil(t, New(nil))

	assert.False(t, r.GetProto("k", &structpb.Struct{}))
	r.SetProto("k", &structpb.Struct{}, time.Second)
	r.Del("k")
}
