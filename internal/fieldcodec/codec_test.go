package fieldcodec

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec(t *testing.T) *AESCodec {
	t.Helper()
	c, err := NewAESCodec(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	return c
}

func TestNewAESCodec_KeyLength(t *testing.T) {
	_, err := NewAESCodec([]byte("short"))
	assert.Error(t, err)
}

func TestAESCodec_RoundTrip(t *testing.T) {
	c := testCodec(t)
	ctx := context.Background()

	sealed, err := c.Encrypt(ctx, "123-45-6789")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "6789")

	again, err := c.Encrypt(ctx, "123-45-6789")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per call")

	plain, err := c.Decrypt(ctx, sealed)
	require.NoError(t, err)
	assert.Equal(t, "123-45-6789", plain)
}

func TestAESCodec_DecryptFailures(t *testing.T) {
	c := testCodec(t)
	ctx := context.Background()

	_, err := c.Decrypt(ctx, "%%%")
	assert.Error(t, err)

	_, err = c.Decrypt(ctx, base64.StdEncoding.EncodeToString([]byte("abc")))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	sealed, err := c.Encrypt(ctx, "metformin")
	require.NoError(t, err)
	raw, _ := base64.StdEncoding.DecodeString(sealed)
	raw[len(raw)-1] ^= 0xff
	_, err = c.Decrypt(ctx, base64.StdEncoding.EncodeToString(raw))
	assert.Error(t, err)
}

func TestFields_SealOpen(t *testing.T) {
	c := testCodec(t)
	ctx := context.Background()

	ssn := "123-45-6789"
	history := "asthma since 2001"
	var missing *string
	a, b := &ssn, &history

	require.NoError(t, Fields{&a, &b, &missing}.Seal(ctx, c))
	assert.NotEqual(t, "123-45-6789", *a)
	assert.Nil(t, missing)

	require.NoError(t, Fields{&a, &b, &missing}.Open(ctx, c))
	assert.Equal(t, "123-45-6789", *a)
	assert.Equal(t, "asthma since 2001", *b)
	assert.Nil(t, missing)
}

type failingCodec struct{}

func (failingCodec) Encrypt(context.Context, string) (string, error) { return "", errors.New("rpc down") }
func (failingCodec) Decrypt(context.Context, string) (string, error) { return "", errors.New("rpc down") }

func TestFields_StopsOnError(t *testing.T) {
	v := "x"
	p := &v
	err := Fields{&p}.Seal(context.Background(), failingCodec{})
	assert.EqualError(t, err, "rpc down")
	assert.Equal(t, "x", *p)
}

func TestNew_SelectsByName(t *testing.T) {
	c, err := New("aes", bytes.Repeat([]byte{1}, 32), nil)
	require.NoError(t, err)
	assert.IsType(t, &AESCodec{}, c)

	c, err = New("pg", nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &PgCodec{}, c)

	_, err = New("rot13", nil, nil)
	assert.Error(t, err)
}
