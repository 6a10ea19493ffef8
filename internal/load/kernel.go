// Package load implements the compute kernel and the worker loop that
// drives it under phase control.
package load

import (
	"math"
	"sync/atomic"
)

const (
	// ChunkIterations is the granularity at which a worker re-checks its
	// control flags. Large enough that flag polling is invisible in the
	// load profile, small enough that stop latency stays in the
	// low-millisecond range on mobile cores.
	ChunkIterations = 1_000_000

	renormCeiling = 1e30
	renormFloor   = 1e-30
)

// sink absorbs the folded kernel state after every chunk so the compiler
// cannot prove the arithmetic unused and eliminate it.
var sink atomic.Uint64

// Kernel is the per-worker arithmetic state: four independent FMA streams
// plus a linear congruential generator to keep the integer pipe busy.
// Workers never share a Kernel.
type Kernel struct {
	v0, v1, v2, v3 float64
	rng            uint32
}

func NewKernel() *Kernel {
	return &Kernel{
		v0:  1.000001,
		v1:  0.999999,
		v2:  1.000003,
		v3:  0.999997,
		rng: 123456789,
	}
}

// Chunk runs ChunkIterations iterations of the kernel. The streams multiply
// by constants straddling 1.0 and are renormalized whenever a magnitude
// drifts past the float range guard in either direction, so the values stay
// finite and non-denormal indefinitely.
func (k *Kernel) Chunk() {
	v0, v1, v2, v3 := k.v0, k.v1, k.v2, k.v3
	rng := k.rng

	for i := 0; i < ChunkIterations; i++ {
		v0 = v0*1.0000001 + 0.0000001
		v1 = v1*0.9999999 + 0.0000002
		v2 = v2*1.0000002 + 0.0000003
		v3 = v3*0.9999998 + 0.0000004
		rng = rng*1664525 + 1013904223

		if v0 > renormCeiling {
			v0 = 1.000001
		}
		if v1 < renormFloor {
			v1 = 0.999999
		}
		if v2 > renormCeiling {
			v2 = 1.000003
		}
		if v3 < renormFloor {
			v3 = 0.999997
		}
	}

	k.v0, k.v1, k.v2, k.v3 = v0, v1, v2, v3
	k.rng = rng

	sink.Store(math.Float64bits(v0+v1+v2+v3) ^ uint64(rng))
}
