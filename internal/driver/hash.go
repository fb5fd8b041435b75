package driver

import (
	"bytes"
	"crypto/sha256"

	"github.com/mubtakir/bayan-sub000/internal/mir"
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// Digest is a sha256 content hash.
type Digest [32]byte

// IsZero reports whether the digest was never computed.
func (d Digest) IsZero() bool { return d == Digest{} }

// HashContent хэширует сырое содержимое единицы компиляции.
func HashContent(data []byte) Digest {
	return sha256.Sum256(data)
}

// FingerprintIR hashes the textual dump of a lowered module. The dump is
// deterministic (functions sorted by name), so equal IR means equal digest.
func FingerprintIR(m *mir.Module, tin *types.Interner, strs *source.Interner) Digest {
	var buf bytes.Buffer
	_ = mir.DumpModule(&buf, m, tin, strs)
	return sha256.Sum256(buf.Bytes())
}
