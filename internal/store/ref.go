package store

// Ref identifies an item held by a Store. A pending ref carries the temporary
// id of an optimistic insert; it is swapped for a confirmed ref once the
// remote store returns the real id.
type Ref struct {
	id      string
	pending bool
}

func Pending(tempID string) Ref { return Ref{id: tempID, pending: true} }

func Confirmed(id string) Ref { return Ref{id: id} }

func (r Ref) ID() string { return r.id }

func (r Ref) IsPending() bool { return r.pending }

func (r Ref) String() string {
	if r.pending {
		return "pending:" + r.id
	}
	return r.id
}
