package query

import "go.mongodb.org/mongo-driver/bson"

// fragment is anything a [Match] can hold: a leaf filter tree or another
// Match.
type fragment interface {
	filter() bson.D
	clone(c *cloner) fragment
}

func (t *tree) clone(c *cloner) fragment { return c.tree(t) }

// Match is a conjunction of disjunctions. Every fragment added with
// [Match.Or] joins the latest group and every fragment added with [Match.And]
// starts a new one, so a.And(b).Or(c) reads as a AND (b OR c).
type Match struct {
	groups [][]fragment
}

func newMatch(f fragment) *Match {
	return &Match{groups: [][]fragment{{f}}}
}

// And starts a new group holding other and returns the receiver.
func (m *Match) And(other *Match) *Match {
	m.groups = append(m.groups, []fragment{m.own(other)})
	return m
}

// Or adds other to the latest group and returns the receiver.
func (m *Match) Or(other *Match) *Match {
	last := len(m.groups) - 1
	m.groups[last] = append(m.groups[last], m.own(other))
	return m
}

// own snapshots other when it is the receiver itself, which would otherwise
// render forever.
func (m *Match) own(other *Match) fragment {
	if other == m {
		return m.Clone()
	}
	return other
}

// Filter renders the match as a document ready to be sent to the store.
// Trees are rendered at call time, so later writes to a shared tree are
// visible here; use [Match.Clone] or [Value.Clone] to avoid that.
func (m *Match) Filter() bson.D {
	return m.filter()
}

func (m *Match) filter() bson.D {
	and := make(bson.A, len(m.groups))
	for n, group := range m.groups {
		or := make(bson.A, len(group))
		for i, f := range group {
			or[i] = f.filter()
		}
		and[n] = bson.D{{Key: "$or", Value: or}}
	}
	return bson.D{{Key: "$and", Value: and}}
}

// Clone returns a deep copy of m whose trees can be extended without
// affecting m.
func (m *Match) Clone() *Match {
	return newCloner().match(m)
}

func (m *Match) clone(c *cloner) fragment { return c.match(m) }

func (c *cloner) match(m *Match) *Match {
	if res, ok := c.matches[m]; ok {
		return res
	}
	res := &Match{groups: make([][]fragment, len(m.groups))}
	c.matches[m] = res
	for n, group := range m.groups {
		res.groups[n] = make([]fragment, len(group))
		for i, f := range group {
			res.groups[n][i] = f.clone(c)
		}
	}
	return res
}
