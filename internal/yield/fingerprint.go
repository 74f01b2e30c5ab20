package yield

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the observations in order.
func Fingerprint(obs []Observation) string {
	return ModelFingerprint(obs, "")
}

// ModelFingerprint hashes the observations followed by the trainer settings.
// Equal fingerprints mean identical models.
func ModelFingerprint(obs []Observation, settings string) string {
	d := xxhash.New()
	var buf [32]byte
	for _, o := range obs {
		binary.LittleEndian.PutUint64(buf[0:], uint64(o.Year))
		binary.LittleEndian.PutUint64(buf[8:], uint64(o.Month))
		binary.LittleEndian.PutUint64(buf[16:], uint64(o.Tenor))
		binary.LittleEndian.PutUint64(buf[24:], math.Float64bits(o.Yield))
		_, _ = d.Write(buf[:])
	}
	if settings != "" {
		_, _ = d.WriteString("|" + settings)
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
