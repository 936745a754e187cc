package hl7

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// wellKnownSegmentIDs is the closed set of segment identifiers defined by
// the HL7 v2.x standard that this package expects to see routinely. They
// are pre-hashed into internedIDs at package init so that lookups for any
// real-world message never touch the fallback map (recording the hit still
// takes the Interner's lock).
var wellKnownSegmentIDs = [...]string{
	"MSH", "BHS", "BTS", "FHS", "FTS",
	"PID", "PD1", "NK1", "PV1", "PV2", "ROL", "DB1", "OBX", "AL1", "DG1",
	"DRG", "PR1", "GT1", "IN1", "IN2", "IN3", "ACC", "UB1", "UB2",
	"ORC", "OBR", "RXA", "RXR", "RXO", "RXC", "RXE", "RXD", "NTE",
	"EVN", "MRG", "SFT", "UAC", "ARV", "CON",
	"MSA", "ERR", "QAK", "QPD", "RCP", "DSC",
	"SCH", "AIS", "AIG", "AIL", "AIP", "RGS",
	"SPM", "SAC", "TQ1", "TQ2", "TCD", "TXA",
	"PES", "PEO", "PCR", "CSR", "CSP", "CSS",
	"ADD", "URD", "URS", "VAR", "PSH", "NST",
	"NSC", "ODS", "ODT", "BLG", "GOL", "NPU",
	"ABS", "APR", "ARQ", "AUT", "CM0", "CM1",
	"CM2", "CNS", "CTD", "CTI", "DSP", "ECD",
	"ECR", "EQP", "EQU", "FAC", "FT1", "GP1",
	"GP2", "IAM", "ILT", "ILT1", "INV", "ISD",
}

// internedIDs holds the pre-computed xxhash digests for wellKnownSegmentIDs,
// keyed by the segment identifier string itself. Because the slice above is
// fixed at init time, this map is built once and never mutated afterward, so
// concurrent lookups need no locking.
var internedIDs map[string]uint64

func init() {
	internedIDs = make(map[string]uint64, len(wellKnownSegmentIDs))
	for _, id := range wellKnownSegmentIDs {
		internedIDs[id] = xxhash.Sum64String(id)
	}
}

// Interner deduplicates segment identifier strings encountered while parsing
// a stream of HL7 messages. Well-known identifiers resolve against a fixed
// table built at package initialization; anything else is interned lazily
// into an owned, growable table guarded by a mutex. Interning lets a parser
// hold a single shared string per distinct identifier instead of allocating
// a fresh one per occurrence, which matters for high-volume feeds where the
// same handful of segment ids (MSH, PID, OBX, ...) repeat millions of times.
type Interner struct {
	mu     sync.RWMutex
	owned  map[string]string
	hits   uint64
	misses uint64
}

// NewInterner returns a ready-to-use Interner.
func NewInterner() *Interner {
	return &Interner{owned: make(map[string]string)}
}

// Intern returns a canonical string equal to id. Repeated calls with equal
// byte content return the exact same string value, avoiding duplicate
// allocations for identifiers seen more than once.
func (n *Interner) Intern(id string) string {
	if _, ok := internedIDs[id]; ok {
		n.recordHit()
		return id
	}

	n.mu.RLock()
	if canon, ok := n.owned[id]; ok {
		n.mu.RUnlock()
		n.recordHit()
		return canon
	}
	n.mu.RUnlock()

	n.mu.Lock()
	defer n.mu.Unlock()
	if canon, ok := n.owned[id]; ok {
		n.recordHit()
		return canon
	}
	n.misses++
	n.owned[id] = id
	return id
}

// InternBytes is Intern for callers that have not yet converted a scanned
// identifier to a string. It converts id to a string before the lookup, so
// it allocates whether or not the identifier is well-known.
func (n *Interner) InternBytes(id []byte) string {
	s := string(id)
	return n.Intern(s)
}

func (n *Interner) recordHit() {
	n.mu.Lock()
	n.hits++
	n.mu.Unlock()
}

// InternerStats reports cache effectiveness for an Interner.
type InternerStats struct {
	Hits   uint64
	Misses uint64
	Owned  int
}

// Stats returns a snapshot of this interner's hit/miss counters and the
// current size of its owned fallback table.
func (n *Interner) Stats() InternerStats {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return InternerStats{Hits: n.hits, Misses: n.misses, Owned: len(n.owned)}
}

// IsWellKnown reports whether id is a member of the fixed, standard
// segment-identifier table.
func IsWellKnown(id string) bool {
	_, ok := internedIDs[id]
	return ok
}
