package ensemble

import "errors"

// maxStreams bounds the number of per-trajectory RNG streams derivable
// from one root seed.
const maxStreams = 1 << 31

// ErrSeedExhaustion indicates more trajectories were requested than the
// seed sequence can supply independent streams for.
var ErrSeedExhaustion = errors.New("ensemble: seed stream space exhausted")

// SeedSequence derives independent per-trajectory seeds from a single
// root seed using the splitmix64 finalizer. The stream for trajectory i
// depends only on (root, i), so any subset of trajectories can be
// reproduced without running the rest.
type SeedSequence struct {
	root int64
}

func NewSeedSequence(root int64) *SeedSequence {
	return &SeedSequence{root: root}
}

// At returns the seed for trajectory i.
func (s *SeedSequence) At(i int) (int64, error) {
	if i < 0 || i >= maxStreams {
		return 0, ErrSeedExhaustion
	}
	return int64(splitmix64(uint64(s.root) + uint64(i)*0x9e3779b97f4a7c15)), nil
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
