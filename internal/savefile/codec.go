// Package savefile decodes and encodes Geometry Dash save files.
//
// A save file is gzip-compressed XML, URL-safe base64 encoded and then
// XOR-ed byte by byte with a fixed key. The key doubles as the format tag.
package savefile

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
)

const (
	// GameManagerFile holds player profile and statistics.
	GameManagerFile = "CCGameManager.dat"
	// LocalLevelsFile holds the player's created levels.
	LocalLevelsFile = "CCLocalLevels.dat"

	// FormatTag identifies the obfuscation scheme of the save format.
	FormatTag = 11
)

// FileNames lists both save files in backup order.
var FileNames = []string{GameManagerFile, LocalLevelsFile}

// Codec converts between raw save file bytes and XML text.
type Codec struct {
	key    byte
	logger *slog.Logger
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CodecOption {
	return func(c *Codec) {
		c.logger = logger
	}
}

// WithFormatTag overrides the XOR key.
func WithFormatTag(tag byte) CodecOption {
	return func(c *Codec) {
		c.key = tag
	}
}

// NewCodec creates a Codec for the standard save format.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{
		key:    FormatTag,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// DecodeFile reads path and decodes it. Read errors are returned;
// undecodable content yields an empty string.
func (c *Codec) DecodeFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("unable to read file: %w", err)
	}
	return c.Decode(ctx, data), nil
}

// Decode recovers the XML document from raw save file bytes.
// It returns an empty string when ctx is cancelled or the data cannot be decoded.
func (c *Codec) Decode(ctx context.Context, data []byte) string {
	if ctx.Err() != nil {
		return ""
	}

	// Some platforms store the document unobfuscated.
	if plain := bytes.TrimSpace(data); bytes.HasPrefix(plain, []byte("<?xml")) {
		return string(plain)
	}

	compressed, err := c.unwrap(data)
	if err != nil {
		c.logger.Debug("save file is not in the expected format", "error", err)
		return ""
	}

	text, err := inflate(compressed)
	if err != nil {
		c.logger.Debug("save file failed to decompress", "error", err)
		return ""
	}

	if ctx.Err() != nil {
		return ""
	}

	return text
}

// Encode produces save file bytes for an XML document.
func (c *Codec) Encode(xml string) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(xml)); err != nil {
		return nil, fmt.Errorf("failed to compress save data: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress save data: %w", err)
	}

	out := make([]byte, base64.URLEncoding.EncodedLen(buf.Len()))
	base64.URLEncoding.Encode(out, buf.Bytes())
	c.xor(out)

	return out, nil
}

// unwrap reverses the XOR and base64 layers.
func (c *Codec) unwrap(data []byte) ([]byte, error) {
	buf := make([]byte, len(data))
	copy(buf, data)
	c.xor(buf)

	buf = bytes.TrimRight(buf, "\x00\r\n\t ")
	buf = bytes.TrimRight(buf, "=")
	if len(buf) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	out := make([]byte, base64.RawURLEncoding.DecodedLen(len(buf)))
	n, err := base64.RawURLEncoding.Decode(out, buf)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}

	return out[:n], nil
}

func (c *Codec) xor(buf []byte) {
	for i := range buf {
		buf[i] ^= c.key
	}
}

// inflate decompresses a gzip or zlib stream. A damaged trailer is
// tolerated as long as some document text was recovered.
func inflate(data []byte) (string, error) {
	var (
		r   io.Reader
		err error
	)

	switch {
	case len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b:
		r, err = gzip.NewReader(bytes.NewReader(data))
	case len(data) >= 1 && data[0] == 0x78:
		r, err = zlib.NewReader(bytes.NewReader(data))
	default:
		return "", fmt.Errorf("unknown compression header")
	}
	if err != nil {
		return "", err
	}

	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return "", err
	}

	return string(out), nil
}
