package extract

import "github.com/ffsites/ffsites/internal/cds"

// Action is the disposition of a current/candidate pair.
type Action int

const (
	// ActionNone: no overlap, flush current and adopt candidate.
	ActionNone Action = iota
	// ActionTruncateBoth: trim both records at the overlap and keep both.
	ActionTruncateBoth
	// ActionDropBoth: the overlap swallows both records.
	ActionDropBoth
	// ActionDropCurrent: current lies within the overlap; candidate is trimmed.
	ActionDropCurrent
	// ActionDropCandidate: candidate lies within the overlap; current is trimmed.
	ActionDropCandidate
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionTruncateBoth:
		return "truncate_both"
	case ActionDropBoth:
		return "drop_both"
	case ActionDropCurrent:
		return "drop_current"
	case ActionDropCandidate:
		return "drop_candidate"
	default:
		return "unknown"
	}
}

// Resolution describes how an overlap between two records is settled.
type Resolution struct {
	Action       Action
	OverlapCount int // current nucleotides at or beyond candidate.Start()
	DelLength    int // OverlapCount rounded up to a whole number of codons
}

// Resolve decides the disposition of candidate against current. Both records
// must be on the same chromosome. Neither record is modified.
func Resolve(current, candidate *cds.Record) Resolution {
	if candidate.Start() > current.End() {
		return Resolution{Action: ActionNone}
	}

	overlap := OverlapCount(current, candidate.Start())
	del := CodonCeil(overlap)
	res := Resolution{OverlapCount: overlap, DelLength: del}

	dropCurrent := del >= current.Len()
	dropCandidate := del >= candidate.Len()
	switch {
	case dropCurrent && dropCandidate:
		res.Action = ActionDropBoth
	case dropCurrent:
		res.Action = ActionDropCurrent
	case dropCandidate:
		res.Action = ActionDropCandidate
	default:
		res.Action = ActionTruncateBoth
	}
	return res
}

// OverlapCount counts the nucleotides of r, walking in from its genomically
// high end, whose coordinate is at or beyond start.
func OverlapCount(r *cds.Record, start int64) int {
	n := 0
	for n < r.Len() && r.Positions[r.HighIndex(n)] >= start {
		n++
	}
	return n
}

// CodonCeil returns the smallest multiple of 3 that is >= n.
func CodonCeil(n int) int {
	return (n + 2) / 3 * 3
}
