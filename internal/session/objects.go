package session

import (
	"database/sql"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"histedit/internal/cas"
)

// WriteObject stores a package data blob, zstd-compressed, keyed by the
// BLAKE3 digest of the uncompressed content. Writing the same content twice
// is a no-op.
func (db *DB) WriteObject(content []byte) (string, error) {
	digest := cas.Blake3HashHex(content)

	var exists int
	err := db.conn.QueryRow(`SELECT 1 FROM objects WHERE digest = ?`, digest).Scan(&exists)
	if err == nil {
		return digest, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("querying object: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return "", fmt.Errorf("creating zstd encoder: %w", err)
	}
	compressed := encoder.EncodeAll(content, nil)
	encoder.Close()

	_, err = db.conn.Exec(`
		INSERT INTO objects (digest, size, blob, created_at) VALUES (?, ?, ?, ?)
	`, digest, len(content), compressed, cas.NowMs())
	if err != nil {
		return "", fmt.Errorf("inserting object: %w", err)
	}
	return digest, nil
}

// ReadObject retrieves and decompresses a package data blob by digest.
func (db *DB) ReadObject(digest string) ([]byte, error) {
	var compressed []byte
	var size int64
	err := db.conn.QueryRow(`SELECT blob, size FROM objects WHERE digest = ?`, digest).Scan(&compressed, &size)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("object %s: %w", digest, ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying object: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	content, err := decoder.DecodeAll(compressed, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("decompressing object %s: %w", digest, err)
	}
	return content, nil
}
