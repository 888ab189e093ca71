package ivf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"time"

	"github.com/hupe1980/biomatch/persistence"
)

// Artifact layout (little-endian):
//
//	header     n_clusters i32, n_probe i32, top_k i32, dim i32, schema_version i32
//	centroids  f32[n_clusters][dim]
//	sizes      i32[n_clusters]
//	entries    (subject_id i64, embedding f32[dim])[sum(sizes)], grouped by cluster
//	trailer    magic u32, built_at i64 (unix nanos), crc32 u32
//
// The CRC32 (IEEE) covers every byte before it.
const (
	// SchemaVersion is the artifact version written by Save.
	SchemaVersion = 1

	trailerMagic uint32 = 0x58494D42 // "BMIX"

	maxDim      = 1 << 16
	maxClusters = 1 << 20
)

type fileHeader struct {
	NClusters     int32
	NProbe        int32
	TopK          int32
	Dim           int32
	SchemaVersion int32
}

type fileTrailer struct {
	Magic   uint32
	BuiltAt int64
}

// Save atomically writes idx to path.
func Save(idx *Index, path string) error {
	if !idx.Trained() {
		return ErrIndexNotTrained
	}
	return persistence.SaveToFile(path, idx.Encode)
}

// Load reads an index written by Save.
func Load(path string) (*Index, error) {
	var idx *Index
	err := persistence.LoadFromFile(path, func(r io.Reader) error {
		var err error
		idx, err = Decode(r)
		return err
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, path)
		}
		return nil, err
	}
	return idx, nil
}

// Encode writes the artifact representation of idx to w.
func (idx *Index) Encode(w io.Writer) error {
	if !idx.Trained() {
		return ErrIndexNotTrained
	}

	cw := persistence.NewChecksumWriter(w)
	le := binary.LittleEndian

	hdr := fileHeader{
		NClusters:     int32(idx.cfg.NClusters),
		NProbe:        int32(idx.cfg.NProbe),
		TopK:          int32(idx.cfg.TopK),
		Dim:           int32(idx.dim),
		SchemaVersion: SchemaVersion,
	}
	if err := binary.Write(cw, le, &hdr); err != nil {
		return err
	}
	if err := binary.Write(cw, le, idx.centroids); err != nil {
		return err
	}

	sizes := make([]int32, idx.cfg.NClusters)
	for c := range sizes {
		sizes[c] = idx.offsets[c+1] - idx.offsets[c]
	}
	if err := binary.Write(cw, le, sizes); err != nil {
		return err
	}

	entry := make([]byte, 8+4*idx.dim)
	for i, id := range idx.ids {
		le.PutUint64(entry, uint64(id))
		for d, v := range idx.vector(i) {
			le.PutUint32(entry[8+4*d:], math.Float32bits(v))
		}
		if _, err := cw.Write(entry); err != nil {
			return err
		}
	}

	trl := fileTrailer{Magic: trailerMagic, BuiltAt: idx.builtAt.UnixNano()}
	if err := binary.Write(cw, le, &trl); err != nil {
		return err
	}
	return binary.Write(w, le, cw.Sum())
}

// Decode reads an artifact from r. Any structural problem is reported as
// ErrIndexCorrupt.
func Decode(r io.Reader) (*Index, error) {
	idx, err := decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexCorrupt, err)
	}
	return idx, nil
}

func decode(r io.Reader) (*Index, error) {
	cr := persistence.NewChecksumReader(r)
	le := binary.LittleEndian

	var hdr fileHeader
	if err := binary.Read(cr, le, &hdr); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if hdr.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("schema version %d, want %d", hdr.SchemaVersion, SchemaVersion)
	}
	if hdr.Dim <= 0 || hdr.Dim > maxDim {
		return nil, fmt.Errorf("dimension %d out of range", hdr.Dim)
	}
	if hdr.NClusters <= 0 || hdr.NClusters > maxClusters {
		return nil, fmt.Errorf("n_clusters %d out of range", hdr.NClusters)
	}
	if hdr.NProbe <= 0 || hdr.TopK <= 0 {
		return nil, fmt.Errorf("invalid n_probe %d / top_k %d", hdr.NProbe, hdr.TopK)
	}

	dim := int(hdr.Dim)
	k := int(hdr.NClusters)

	centroids, err := readFloats(cr, k*dim)
	if err != nil {
		return nil, fmt.Errorf("reading centroids: %w", err)
	}

	sizes, err := readUint32s(cr, k)
	if err != nil {
		return nil, fmt.Errorf("reading cluster sizes: %w", err)
	}
	offsets := make([]int32, k+1)
	for c, u := range sizes {
		s := int32(u)
		if s < 0 {
			return nil, fmt.Errorf("cluster %d has negative size %d", c, s)
		}
		total := int64(offsets[c]) + int64(s)
		if total > math.MaxInt32 {
			return nil, errors.New("entry count overflows")
		}
		offsets[c+1] = int32(total)
	}
	n := int(offsets[k])

	capHint := min(n, readChunk/dim+1)
	ids := make([]int64, 0, capHint)
	vectors := make([]float32, 0, capHint*dim)
	entry := make([]byte, 8+4*dim)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(cr, entry); err != nil {
			return nil, fmt.Errorf("reading entry %d: %w", i, err)
		}
		ids = append(ids, int64(le.Uint64(entry)))
		for d := 0; d < dim; d++ {
			vectors = append(vectors, math.Float32frombits(le.Uint32(entry[8+4*d:])))
		}
	}

	var trl fileTrailer
	if err := binary.Read(cr, le, &trl); err != nil {
		return nil, fmt.Errorf("reading trailer: %w", err)
	}
	if trl.Magic != trailerMagic {
		return nil, fmt.Errorf("bad trailer magic 0x%08x", trl.Magic)
	}
	var sum uint32
	if err := binary.Read(r, le, &sum); err != nil {
		return nil, fmt.Errorf("reading checksum: %w", err)
	}
	if err := cr.Verify(sum); err != nil {
		return nil, err
	}

	return &Index{
		cfg: Config{
			NClusters: k,
			NProbe:    int(hdr.NProbe),
			TopK:      int(hdr.TopK),
		},
		dim:       dim,
		builtAt:   time.Unix(0, trl.BuiltAt).UTC(),
		centroids: centroids,
		offsets:   offsets,
		ids:       ids,
		vectors:   vectors,
		trained:   true,
	}, nil
}

// readChunk bounds the words read per step. Counts come from an unverified
// header, so slices grow only as data actually arrives.
const readChunk = 1 << 16

func readUint32s(r io.Reader, n int) ([]uint32, error) {
	out := make([]uint32, 0, min(n, readChunk))
	buf := make([]byte, 4*min(n, readChunk))
	for len(out) < n {
		m := min(n-len(out), readChunk)
		if _, err := io.ReadFull(r, buf[:4*m]); err != nil {
			return nil, err
		}
		for i := 0; i < m; i++ {
			out = append(out, binary.LittleEndian.Uint32(buf[4*i:]))
		}
	}
	return out, nil
}

func readFloats(r io.Reader, n int) ([]float32, error) {
	words, err := readUint32s(r, n)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(words))
	for i, w := range words {
		out[i] = math.Float32frombits(w)
	}
	return out, nil
}
