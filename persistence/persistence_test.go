package persistence

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "face.idx")

	err := SaveToFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("v1"))
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	require.NoError(t, SaveToFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("v2"))
		return err
	}))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	assertNoTempFiles(t, filepath.Dir(path))
}

func TestSaveToFile_FailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voice.idx")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	boom := errors.New("boom")
	err := SaveToFile(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	assertNoTempFiles(t, dir)
}

func TestSaveToFile_ConcurrentReadersSeeWholeFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sig.idx")
	a := bytes.Repeat([]byte{'a'}, 64*1024)
	b := bytes.Repeat([]byte{'b'}, 96*1024)
	require.NoError(t, SaveToFile(path, func(w io.Writer) error { _, err := w.Write(a); return err }))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			payload := a
			if i%2 == 0 {
				payload = b
			}
			_ = SaveToFile(path, func(w io.Writer) error { _, err := w.Write(payload); return err })
		}
		close(stop)
	}()

	for done := false; !done; {
		select {
		case <-stop:
			done = true
		default:
		}
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		if !bytes.Equal(data, a) && !bytes.Equal(data, b) {
			t.Fatalf("observed partial file of %d bytes", len(data))
		}
	}
	wg.Wait()
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	err := LoadFromFile(filepath.Join(dir, "missing.idx"), func(io.Reader) error { return nil })
	assert.ErrorIs(t, err, fs.ErrNotExist)

	path := filepath.Join(dir, "x.idx")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	var got []byte
	require.NoError(t, LoadFromFile(path, func(r io.Reader) error {
		var err error
		got, err = io.ReadAll(r)
		return err
	}))
	assert.Equal(t, "hello", string(got))
}

func TestChecksum(t *testing.T) {
	var buf bytes.Buffer
	cw := NewChecksumWriter(&buf)
	_, err := cw.Write([]byte("biometric"))
	require.NoError(t, err)

	cr := NewChecksumReader(bytes.NewReader(buf.Bytes()))
	_, err = io.ReadAll(cr)
	require.NoError(t, err)
	assert.Equal(t, cw.Sum(), cr.Sum())
	assert.NoError(t, cr.Verify(cw.Sum()))

	err = cr.Verify(cw.Sum() + 1)
	var mismatch *ChecksumMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, cw.Sum()+1, mismatch.Expected)
}

func TestLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face.idx")
	l, err := Lock(path)
	require.NoError(t, err)
	require.NoError(t, l.Unlock())
	require.NoError(t, l.Unlock())

	var nilLock *FileLock
	assert.NoError(t, nilLock.Unlock())

	// Re-acquire after release.
	l, err = Lock(path)
	require.NoError(t, err)
	assert.NoError(t, l.Unlock())
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}
