package diplomacy

import "strings"

// Note is the legality code attached to an order when it is submitted.
type Note uint8

const (
	MBV Note = iota // order is valid
	FAR             // not adjacent or not reachable
	NSP             // no such province
	NSU             // no such unit
	NAS             // convoying fleet is not at sea
	NSF             // no such fleet
	NSA             // no such army
	NYU             // not your unit
	NRN             // no retreat needed
	NVR             // not a valid retreat space
	YSC             // not your supply center
	ESC             // not an empty supply center
	HSC             // not a home supply center
	NSC             // not a supply center
	CST             // coast missing, ambiguous or impossible
	NMB             // no more builds allowed
	NMR             // no more removals allowed
	NRS             // not the right season for this order
)

var noteCodes = [...]string{"MBV", "FAR", "NSP", "NSU", "NAS", "NSF", "NSA", "NYU", "NRN", "NVR",
	"YSC", "ESC", "HSC", "NSC", "CST", "NMB", "NMR", "NRS"}

func (n Note) String() string {
	if int(n) < len(noteCodes) {
		return noteCodes[n]
	}
	return "???"
}

// Valid reports whether the note is MBV.
func (n Note) Valid() bool { return n == MBV }

// MarshalText encodes the note as its three-letter code.
func (n Note) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

// Result is the set of outcome codes attached to an adjudicated order.
// RET combines with the others; the remaining codes are exclusive.
type Result uint8

const (
	SUC Result = 1 << iota // order succeeded
	BNC                    // move bounced
	CUT                    // support was cut
	DSR                    // convoy route disrupted
	NSO                    // no such order: unmatched support, convoy or route
	FLD                    // order failed (illegal adjustment order)
	RET                    // unit was dislodged and must retreat
)

var resultCodes = []struct {
	r    Result
	code string
}{
	{SUC, "SUC"}, {BNC, "BNC"}, {CUT, "CUT"}, {DSR, "DSR"}, {NSO, "NSO"}, {FLD, "FLD"}, {RET, "RET"},
}

// Has reports whether every code in o is set.
func (r Result) Has(o Result) bool { return r&o == o }

// Base returns the result without the RET flag.
func (r Result) Base() Result { return r &^ RET }

func (r Result) String() string {
	var parts []string
	for _, c := range resultCodes {
		if r&c.r != 0 {
			parts = append(parts, c.code)
		}
	}
	return strings.Join(parts, " ")
}

// MarshalText encodes the result as space-separated codes.
func (r Result) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// ResolvedOrder pairs an order with its adjudication result. Orders that
// were accepted despite being illegal carry their legality code in Note
// and report it in place of a base result.
type ResolvedOrder struct {
	Order    Order          `json:"order"`
	Result   Result         `json:"result"`
	Note     Note           `json:"note"`
	Retreats []UnitPosition `json:"retreats,omitempty"`
}

// Codes renders the result as it is reported to players, e.g. "BNC RET".
func (r ResolvedOrder) Codes() string {
	if r.Note != MBV {
		if r.Result.Has(RET) {
			return r.Note.String() + " RET"
		}
		return r.Note.String()
	}
	return r.Result.String()
}

func (r ResolvedOrder) String() string {
	return r.Order.String() + ": " + r.Codes()
}
