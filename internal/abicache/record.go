// Package abicache persists the computed ABI layout of every enum of a
// declaration file, keyed by the file's content hash and the options that
// influence layout.
package abicache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"enumgen/internal/enumimpl"
	"enumgen/internal/layout"
)

// Case is one enum case as persisted.
type Case struct {
	Name    string
	Payload string // payload type name, empty for a case without data
	// Pattern is the storage pattern of an empty case in a fixed layout.
	Pattern string
}

// Record is the ABI-visible layout of one enum.
type Record struct {
	Name             string
	Strategy         string
	Kind             string
	Size             int
	Align            int
	Stride           int
	PayloadBits      int
	ExtraTagBits     int
	SpareTagBits     string
	ExtraInhabitants uint32
	Cases            []Case
}

// RecordOf captures the layout chosen by s.
func RecordOf(s enumimpl.Strategy) Record {
	f := s.Facts()
	r := Record{
		Name:             s.TypeInfo().Name(),
		Strategy:         f.Variant.String(),
		Kind:             f.Kind.String(),
		Size:             f.Size,
		Align:            f.Align,
		Stride:           f.Stride,
		PayloadBits:      f.PayloadBits,
		ExtraTagBits:     f.ExtraTagBits,
		ExtraInhabitants: f.ExtraInhabitantCount,
	}
	if f.PayloadTagBits.Width() > 0 {
		r.SpareTagBits = f.PayloadTagBits.Hex()
	}
	_, fixed := layout.AsFixed(s.TypeInfo())
	r.Cases = make([]Case, 0, len(s.Cases()))
	for _, el := range s.Cases() {
		c := Case{Name: el.Name}
		if el.Payload != nil {
			c.Payload = el.Payload.Name()
		} else if fixed {
			c.Pattern = s.BitPatternForNoPayloadElement(el.Index).Hex()
		}
		r.Cases = append(r.Cases, c)
	}
	return r
}

// Key derives the cache key of a declaration file from its content hash and
// every option that changes the computed layouts.
func Key(contentHash [32]byte, triple string, allowNonFixedMultiPayload bool) string {
	h := sha256.New()
	_, _ = h.Write(contentHash[:])
	_, _ = h.Write([]byte(triple))
	_, _ = h.Write([]byte(strconv.FormatBool(allowNonFixedMultiPayload)))
	return hex.EncodeToString(h.Sum(nil))
}
