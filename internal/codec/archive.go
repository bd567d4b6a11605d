package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/minio/crc64nvme"
	"github.com/wolfeidau/gazerecorder/internal/models"
)

const (
	archiveMagic   = "GZSESS01"
	archiveVersion = 1
	headerSize     = 24 // 8 bytes magic + 4 bytes version + 4 bytes reserved + 8 bytes CRC64

	// maxArchivePayload bounds decompression of untrusted archives.
	maxArchivePayload = 512 << 20
)

// WriteArchive writes JSON to w as a checksummed zstd archive.
//
// Layout: magic, uint32 version, uint32 reserved, uint64 CRC64-NVME of the
// uncompressed payload (all little endian), then one zstd frame.
func WriteArchive(w io.Writer, payload []byte) error {
	header := make([]byte, headerSize)
	copy(header[0:8], archiveMagic)
	binary.LittleEndian.PutUint32(header[8:12], archiveVersion)
	binary.LittleEndian.PutUint32(header[12:16], 0)
	binary.LittleEndian.PutUint64(header[16:24], computeCRC64(payload))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write archive header: %w", err)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("failed to create encoder: %w", err)
	}

	if _, err := enc.Write(payload); err != nil {
		_ = enc.Close()
		return fmt.Errorf("failed to compress: %w", err)
	}

	// Close encoder to flush
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}
	return nil
}

// ReadArchive reads an archive written by WriteArchive and returns the
// verified payload. Any malformed input is a SerializationError.
func ReadArchive(r io.Reader) ([]byte, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, serializationError("failed to read archive header: %w", err)
	}

	if magic := string(header[0:8]); magic != archiveMagic {
		return nil, serializationError("invalid archive magic: %q", magic)
	}
	if version := binary.LittleEndian.Uint32(header[8:12]); version != archiveVersion {
		return nil, serializationError("unsupported archive version: %d", version)
	}
	storedCRC := binary.LittleEndian.Uint64(header[16:24])

	dec, err := zstd.NewReader(r, zstd.WithDecoderMaxMemory(maxArchivePayload))
	if err != nil {
		return nil, serializationError("failed to create decoder: %w", err)
	}
	defer dec.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(dec, maxArchivePayload+1))
	if err != nil {
		return nil, serializationError("failed to decompress archive: %w", err)
	}
	if n > maxArchivePayload {
		return nil, serializationError("archive payload exceeds %d bytes", maxArchivePayload)
	}

	payload := buf.Bytes()
	if crc := computeCRC64(payload); crc != storedCRC {
		return nil, serializationError("archive checksum mismatch: stored %016x, computed %016x", storedCRC, crc)
	}
	return payload, nil
}

// WriteSessionsArchive encodes sessions and writes them as an archive.
func WriteSessionsArchive(w io.Writer, sessions []*models.Session, opts Options) error {
	opts.Indent = false
	payload, err := EncodeSessions(sessions, opts)
	if err != nil {
		return err
	}
	return WriteArchive(w, payload)
}

// ReadSessionsArchive reads and decodes an archive of sessions.
func ReadSessionsArchive(r io.Reader) ([]*models.Session, error) {
	payload, err := ReadArchive(r)
	if err != nil {
		return nil, err
	}
	return DecodeSessions(payload)
}

// computeCRC64 computes CRC64-NVME checksum
func computeCRC64(data []byte) uint64 {
	h := crc64nvme.New()
	h.Write(data)
	return h.Sum64()
}
