// Package codec serialises a final track into the per-clip blob consumed
// by overlay rendering and multi-clip views.
//
// The blob is protobuf wire format, written by hand with protowire:
//
//	message Track {
//	  uint32 frame_count = 1;
//	  int64  end         = 2; // present only when terminated
//	  repeated Sample samples = 3;
//	  Boundary boundary  = 4; // contact clips only
//	}
//	message Sample   { uint32 frame = 1; double x = 2; double y = 3; }
//	message Boundary { uint32 release = 1; uint32 hit = 2; double x = 3; double y = 4; string method = 5; }
//
// Unknown samples are omitted.
package codec

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/pitchtrace/internal/ball/phase"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned for blobs that do not decode to a valid track.
var ErrMalformed = errors.New("malformed track blob")

// maxFrames bounds frame_count so a corrupt blob cannot force a huge allocation.
const maxFrames = 1 << 20

const (
	fieldFrameCount protowire.Number = 1
	fieldEnd        protowire.Number = 2
	fieldSample     protowire.Number = 3
	fieldBoundary   protowire.Number = 4

	fieldSampleFrame protowire.Number = 1
	fieldSampleX     protowire.Number = 2
	fieldSampleY     protowire.Number = 3

	fieldBoundaryRelease protowire.Number = 1
	fieldBoundaryHit     protowire.Number = 2
	fieldBoundaryX       protowire.Number = 3
	fieldBoundaryY       protowire.Number = 4
	fieldBoundaryMethod  protowire.Number = 5
)

// Marshal encodes arr and, when non-nil, the contact boundary.
func Marshal(arr *track.Array, b *phase.Boundary) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldFrameCount, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(arr.Len()))
	if end, ok := arr.End(); ok {
		buf = protowire.AppendTag(buf, fieldEnd, protowire.VarintType)
		buf = protowire.AppendVarint(buf, uint64(end))
	}
	for _, f := range arr.ValidFrames() {
		p, _ := arr.Position(f)
		var s []byte
		s = protowire.AppendTag(s, fieldSampleFrame, protowire.VarintType)
		s = protowire.AppendVarint(s, uint64(f))
		s = protowire.AppendTag(s, fieldSampleX, protowire.Fixed64Type)
		s = protowire.AppendFixed64(s, math.Float64bits(p.X))
		s = protowire.AppendTag(s, fieldSampleY, protowire.Fixed64Type)
		s = protowire.AppendFixed64(s, math.Float64bits(p.Y))

		buf = protowire.AppendTag(buf, fieldSample, protowire.BytesType)
		buf = protowire.AppendBytes(buf, s)
	}
	if b != nil {
		var s []byte
		s = protowire.AppendTag(s, fieldBoundaryRelease, protowire.VarintType)
		s = protowire.AppendVarint(s, uint64(b.ReleaseFrame))
		s = protowire.AppendTag(s, fieldBoundaryHit, protowire.VarintType)
		s = protowire.AppendVarint(s, uint64(b.HitFrame))
		s = protowire.AppendTag(s, fieldBoundaryX, protowire.Fixed64Type)
		s = protowire.AppendFixed64(s, math.Float64bits(b.HitPoint.X))
		s = protowire.AppendTag(s, fieldBoundaryY, protowire.Fixed64Type)
		s = protowire.AppendFixed64(s, math.Float64bits(b.HitPoint.Y))
		s = protowire.AppendTag(s, fieldBoundaryMethod, protowire.BytesType)
		s = protowire.AppendString(s, string(b.Method))

		buf = protowire.AppendTag(buf, fieldBoundary, protowire.BytesType)
		buf = protowire.AppendBytes(buf, s)
	}
	return buf
}

type sample struct {
	frame int
	pos   track.Position
}

// Unmarshal decodes a blob produced by Marshal. Unknown fields are skipped.
func Unmarshal(data []byte) (*track.Array, *phase.Boundary, error) {
	var (
		count    = -1
		end      = -1
		samples  []sample
		boundary *phase.Boundary
	)

	err := walk(data, func(num protowire.Number, typ protowire.Type, v uint64, raw []byte) error {
		switch {
		case num == fieldFrameCount && typ == protowire.VarintType:
			if v > maxFrames {
				return fmt.Errorf("frame_count %d too large", v)
			}
			count = int(v)
		case num == fieldEnd && typ == protowire.VarintType:
			if v > maxFrames {
				return fmt.Errorf("end %d too large", v)
			}
			end = int(v)
		case num == fieldSample && typ == protowire.BytesType:
			s, err := decodeSample(raw)
			if err != nil {
				return err
			}
			samples = append(samples, s)
		case num == fieldBoundary && typ == protowire.BytesType:
			b, err := decodeBoundary(raw)
			if err != nil {
				return err
			}
			boundary = &b
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if count < 0 {
		return nil, nil, fmt.Errorf("missing frame_count: %w", ErrMalformed)
	}

	arr := track.NewArray(count)
	for _, s := range samples {
		if err := arr.Set(s.frame, s.pos); err != nil {
			return nil, nil, fmt.Errorf("%v: %w", err, ErrMalformed)
		}
	}
	if end >= 0 {
		if end > count {
			return nil, nil, fmt.Errorf("end %d beyond %d frames: %w", end, count, ErrMalformed)
		}
		if lv := arr.LastValid(); lv >= end {
			return nil, nil, fmt.Errorf("sample at %d after end %d: %w", lv, end, ErrMalformed)
		}
		arr.Terminate(end)
	}
	if boundary != nil && (boundary.ReleaseFrame < 0 || boundary.HitFrame != boundary.ReleaseFrame+1 || boundary.HitFrame >= count) {
		return nil, nil, fmt.Errorf("boundary %v inconsistent: %w", boundary, ErrMalformed)
	}
	return arr, boundary, nil
}

// walk iterates the top-level fields of a message. For varint and fixed64
// fields v holds the value; for bytes fields raw holds the payload.
func walk(data []byte, fn func(num protowire.Number, typ protowire.Type, v uint64, raw []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("tag: %v: %w", protowire.ParseError(n), ErrMalformed)
		}
		data = data[n:]

		var (
			v   uint64
			raw []byte
		)
		switch typ {
		case protowire.VarintType:
			v, n = protowire.ConsumeVarint(data)
		case protowire.Fixed64Type:
			v, n = protowire.ConsumeFixed64(data)
		case protowire.BytesType:
			raw, n = protowire.ConsumeBytes(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return fmt.Errorf("field %d: %v: %w", num, protowire.ParseError(n), ErrMalformed)
		}
		data = data[n:]

		if err := fn(num, typ, v, raw); err != nil {
			if errors.Is(err, ErrMalformed) {
				return err
			}
			return fmt.Errorf("field %d: %v: %w", num, err, ErrMalformed)
		}
	}
	return nil
}

func decodeSample(data []byte) (sample, error) {
	var (
		s              sample
		hasX, hasY, ok bool
	)
	err := walk(data, func(num protowire.Number, typ protowire.Type, v uint64, _ []byte) error {
		switch {
		case num == fieldSampleFrame && typ == protowire.VarintType:
			if v > maxFrames {
				return fmt.Errorf("sample frame %d too large", v)
			}
			s.frame, ok = int(v), true
		case num == fieldSampleX && typ == protowire.Fixed64Type:
			s.pos.X, hasX = math.Float64frombits(v), true
		case num == fieldSampleY && typ == protowire.Fixed64Type:
			s.pos.Y, hasY = math.Float64frombits(v), true
		}
		return nil
	})
	if err != nil {
		return sample{}, err
	}
	if !ok || !hasX || !hasY {
		return sample{}, fmt.Errorf("incomplete sample: %w", ErrMalformed)
	}
	return s, nil
}

func decodeBoundary(data []byte) (phase.Boundary, error) {
	var b phase.Boundary
	err := walk(data, func(num protowire.Number, typ protowire.Type, v uint64, raw []byte) error {
		switch {
		case num == fieldBoundaryRelease && typ == protowire.VarintType:
			if v > maxFrames {
				return fmt.Errorf("release frame %d too large", v)
			}
			b.ReleaseFrame = int(v)
		case num == fieldBoundaryHit && typ == protowire.VarintType:
			if v > maxFrames {
				return fmt.Errorf("hit frame %d too large", v)
			}
			b.HitFrame = int(v)
		case num == fieldBoundaryX && typ == protowire.Fixed64Type:
			b.HitPoint.X = math.Float64frombits(v)
		case num == fieldBoundaryY && typ == protowire.Fixed64Type:
			b.HitPoint.Y = math.Float64frombits(v)
		case num == fieldBoundaryMethod && typ == protowire.BytesType:
			b.Method = phase.Method(raw)
		}
		return nil
	})
	return b, err
}
