package codec

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/gazerecorder/internal/models"
)

func TestArchive_RoundTrip(t *testing.T) {
	want := []*models.Session{testSession("a"), testSession("b")}

	var buf bytes.Buffer
	require.NoError(t, WriteSessionsArchive(&buf, want, Options{Keys: KeysSnakeCase, Indent: true}))
	require.Equal(t, archiveMagic, buf.String()[:8])
	require.Equal(t, uint32(archiveVersion), binary.LittleEndian.Uint32(buf.Bytes()[8:12]))

	got, err := ReadSessionsArchive(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestArchive_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteArchive(&buf, nil))

	payload, err := ReadArchive(&buf)
	require.NoError(t, err)
	require.Empty(t, payload)
}

func TestArchive_Corrupt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSessionsArchive(&buf, []*models.Session{testSession("a")}, Options{}))
	valid := buf.Bytes()

	corrupt := func(f func(b []byte) []byte) []byte {
		b := bytes.Clone(valid)
		return f(b)
	}

	tests := map[string][]byte{
		"short header": valid[:10],
		"bad magic": corrupt(func(b []byte) []byte {
			copy(b, "NOTGAZE!")
			return b
		}),
		"bad version": corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[8:12], 99)
			return b
		}),
		"checksum mismatch": corrupt(func(b []byte) []byte {
			b[16] ^= 0xff
			return b
		}),
		"truncated frame": valid[:headerSize+(len(valid)-headerSize)/2],
		"garbage frame": corrupt(func(b []byte) []byte {
			return append(b[:headerSize], []byte("definitely not zstd")...)
		}),
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ReadSessionsArchive(bytes.NewReader(input))
			require.Nil(t, got)

			var serr *SerializationError
			require.ErrorAs(t, err, &serr)
		})
	}
}

func TestComputeCRC64(t *testing.T) {
	require.Equal(t, computeCRC64([]byte("gaze")), computeCRC64([]byte("gaze")))
	require.NotEqual(t, computeCRC64([]byte("gaze")), computeCRC64([]byte("gazf")))
}
