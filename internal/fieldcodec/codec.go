// Package fieldcodec encrypts and decrypts sensitive free-text fields (SSN,
// diagnosis, medication names and the like) before they reach a table row.
package fieldcodec

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Codec interface {
	Encrypt(ctx context.Context, plain string) (string, error)
	Decrypt(ctx context.Context, sealed string) (string, error)
}

// PgCodec delegates to the encrypt_text/decrypt_text functions in the
// database, so the key never leaves the database server.
type PgCodec struct {
	pool *pgxpool.Pool
}

func NewPgCodec(pool *pgxpool.Pool) *PgCodec {
	return &PgCodec{pool: pool}
}

func (c *PgCodec) Encrypt(ctx context.Context, plain string) (string, error) {
	var out string
	if err := c.pool.QueryRow(ctx, `SELECT encrypt_text($1)`, plain).Scan(&out); err != nil {
		return "", fmt.Errorf("encrypt field: %w", err)
	}
	return out, nil
}

func (c *PgCodec) Decrypt(ctx context.Context, sealed string) (string, error) {
	var out string
	if err := c.pool.QueryRow(ctx, `SELECT decrypt_text($1)`, sealed).Scan(&out); err != nil {
		return "", fmt.Errorf("decrypt field: %w", err)
	}
	return out, nil
}

// New picks a codec by name: "pg" uses the database functions, "aes" seals
// in process with key.
func New(kind string, key []byte, pool *pgxpool.Pool) (Codec, error) {
	switch kind {
	case "pg":
		return NewPgCodec(pool), nil
	case "aes":
		return NewAESCodec(key)
	default:
		return nil, fmt.Errorf("unknown field codec %q", kind)
	}
}

// SealOptional encrypts *plain when it is set; nil stays nil.
func SealOptional(ctx context.Context, c Codec, plain *string) (*string, error) {
	if plain == nil {
		return nil, nil
	}
	sealed, err := c.Encrypt(ctx, *plain)
	if err != nil {
		return nil, err
	}
	return &sealed, nil
}

func OpenOptional(ctx context.Context, c Codec, sealed *string) (*string, error) {
	if sealed == nil {
		return nil, nil
	}
	plain, err := c.Decrypt(ctx, *sealed)
	if err != nil {
		return nil, err
	}
	return &plain, nil
}

// Fields seals or opens a batch of optional fields in place, stopping at the
// first error.
type Fields []**string

func (f Fields) Seal(ctx context.Context, c Codec) error {
	for _, p := range f {
		v, err := SealOptional(ctx, c, *p)
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

func (f Fields) Open(ctx context.Context, c Codec) error {
	for _, p := range f {
		v, err := OpenOptional(ctx, c, *p)
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}
