package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/ariefcatur/factory-orders/internal/apperr"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type memDoc struct {
	seq  int64
	body []byte
}

type memState struct {
	mu    sync.Mutex
	seq   int64
	colls map[string]map[string]memDoc
}

// Memory is an in-process Store. Transactions hold the store lock for their whole run,
// so concurrent workflows are serialized.
type Memory struct {
	st   *memState
	inTx bool
}

func NewMemory() *Memory {
	return &Memory{st: &memState{colls: map[string]map[string]memDoc{}}}
}

func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.st.mu.Lock()
	return m.st.mu.Unlock
}

func (m *Memory) coll(name string) map[string]memDoc {
	c, ok := m.st.colls[name]
	if !ok {
		c = map[string]memDoc{}
		m.st.colls[name] = c
	}
	return c
}

// sorted returns the collection's documents in insertion order.
func (m *Memory) sorted(name string) []memDoc {
	c := m.coll(name)
	out := make([]memDoc, 0, len(c))
	for _, d := range c {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (m *Memory) FindByID(_ context.Context, coll, id string, out any) error {
	defer m.lock()()
	d, ok := m.coll(coll)[id]
	if !ok {
		return apperr.NotFound("%s %s", coll, id)
	}
	return errors.Wrap(json.Unmarshal(d.body, out), "decode document")
}

func (m *Memory) FindOne(_ context.Context, coll string, f Filter, out any) error {
	defer m.lock()()
	for _, d := range m.sorted(coll) {
		ok, err := matches(d.body, f)
		if err != nil {
			return err
		}
		if ok {
			return errors.Wrap(json.Unmarshal(d.body, out), "decode document")
		}
	}
	return apperr.NotFound("%s matching %v", coll, f)
}

func (m *Memory) Find(_ context.Context, coll string, f Filter, out any) error {
	defer m.lock()()
	var bodies [][]byte
	for _, d := range m.sorted(coll) {
		ok, err := matches(d.body, f)
		if err != nil {
			return err
		}
		if ok {
			bodies = append(bodies, d.body)
		}
	}
	return DecodeAll(bodies, out)
}

func (m *Memory) Search(_ context.Context, coll, field, text string, out any) error {
	defer m.lock()()
	needle := strings.ToLower(text)
	var bodies [][]byte
	for _, d := range m.sorted(coll) {
		fields, err := decodeFields(d.body)
		if err != nil {
			return err
		}
		if s, ok := fields[field].(string); ok && strings.Contains(strings.ToLower(s), needle) {
			bodies = append(bodies, d.body)
		}
	}
	return DecodeAll(bodies, out)
}

func (m *Memory) Insert(_ context.Context, coll, id string, doc any) error {
	defer m.lock()()
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encode document")
	}
	c := m.coll(coll)
	if _, ok := c[id]; ok {
		return apperr.Conflict("%s %s", coll, id)
	}
	if err := m.checkUnique(coll, id, body); err != nil {
		return err
	}
	m.st.seq++
	c[id] = memDoc{seq: m.st.seq, body: body}
	return nil
}

func (m *Memory) UpdateByID(_ context.Context, coll, id string, patch any) error {
	defer m.lock()()
	c := m.coll(coll)
	d, ok := c[id]
	if !ok {
		return apperr.NotFound("%s %s", coll, id)
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return errors.Wrap(err, "encode patch")
	}
	fields, err := decodeFields(d.body)
	if err != nil {
		return err
	}
	changes, err := decodeFields(raw)
	if err != nil {
		return err
	}
	for k, v := range changes {
		fields[k] = v
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return errors.Wrap(err, "encode document")
	}
	if err := m.checkUnique(coll, id, body); err != nil {
		return err
	}
	c[id] = memDoc{seq: d.seq, body: body}
	return nil
}

func (m *Memory) DeleteByID(_ context.Context, coll, id string) error {
	defer m.lock()()
	c := m.coll(coll)
	if _, ok := c[id]; !ok {
		return apperr.NotFound("%s %s", coll, id)
	}
	delete(c, id)
	return nil
}

func (m *Memory) ConditionalDecrement(_ context.Context, coll, id, field string, n int) (int, error) {
	defer m.lock()()
	return m.addInt(coll, id, field, -n, true)
}

func (m *Memory) Increment(_ context.Context, coll, id, field string, n int) (int, error) {
	defer m.lock()()
	return m.addInt(coll, id, field, n, false)
}

func (m *Memory) addInt(coll, id, field string, delta int, guard bool) (int, error) {
	c := m.coll(coll)
	d, ok := c[id]
	if !ok {
		return 0, apperr.NotFound("%s %s", coll, id)
	}
	fields, err := decodeFields(d.body)
	if err != nil {
		return 0, err
	}
	cur := 0
	if num, ok := fields[field].(json.Number); ok {
		v, err := num.Int64()
		if err != nil {
			return 0, errors.Wrapf(err, "%s.%s is not an integer", coll, field)
		}
		cur = int(v)
	}
	if guard && cur+delta < 0 {
		return cur, ErrInsufficient
	}
	fields[field] = cur + delta
	body, err := json.Marshal(fields)
	if err != nil {
		return 0, errors.Wrap(err, "encode document")
	}
	c[id] = memDoc{seq: d.seq, body: body}
	return cur + delta, nil
}

func (m *Memory) Aggregate(_ context.Context, p Pipeline) ([]Group, error) {
	defer m.lock()()
	totals := map[string]decimal.Decimal{}
	for _, d := range m.sorted(p.Collection) {
		ok, err := matches(d.body, p.Match)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		fields, err := decodeFields(d.body)
		if err != nil {
			return nil, err
		}
		key, _ := fields[p.GroupBy].(string)
		amount, err := toDecimal(fields[p.Sum])
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", p.Collection, p.Sum)
		}
		totals[key] = totals[key].Add(amount)
	}

	out := make([]Group, 0, len(totals))
	for k, total := range totals {
		g := Group{Key: k, Total: total}
		if p.Join != "" {
			if jd, ok := m.coll(p.Join)[k]; ok {
				g.Doc = append(json.RawMessage(nil), jd.body...)
			}
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, nil
}

func (m *Memory) Tx(ctx context.Context, fn func(Store) error) error {
	if m.inTx {
		return fn(m)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.st.mu.Lock()
	defer m.st.mu.Unlock()

	snapshot := make(map[string]map[string]memDoc, len(m.st.colls))
	for name, c := range m.st.colls {
		cp := make(map[string]memDoc, len(c))
		for id, d := range c {
			cp[id] = d
		}
		snapshot[name] = cp
	}
	defer func() {
		if r := recover(); r != nil {
			m.st.colls = snapshot
			panic(r)
		}
	}()
	if err := fn(&Memory{st: m.st, inTx: true}); err != nil {
		m.st.colls = snapshot
		return err
	}
	return nil
}

func (m *Memory) checkUnique(coll, id string, body []byte) error {
	keys := UniqueFields[coll]
	if len(keys) == 0 {
		return nil
	}
	fields, err := decodeFields(body)
	if err != nil {
		return err
	}
	for otherID, d := range m.coll(coll) {
		if otherID == id {
			continue
		}
		other, err := decodeFields(d.body)
		if err != nil {
			return err
		}
		for _, k := range keys {
			v, ok := fields[k]
			if ok && v != "" && jsonEqual(v, other[k]) {
				return apperr.Conflict("%s with %s %v", coll, k, v)
			}
		}
	}
	return nil
}

func decodeFields(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	fields := map[string]any{}
	if err := dec.Decode(&fields); err != nil {
		return nil, errors.Wrap(err, "decode document")
	}
	return fields, nil
}

func matches(body []byte, f Filter) (bool, error) {
	if len(f) == 0 {
		return true, nil
	}
	fields, err := decodeFields(body)
	if err != nil {
		return false, err
	}
	for k, want := range f {
		if !jsonEqual(fields[k], want) {
			return false, nil
		}
	}
	return true, nil
}

func jsonEqual(a, b any) bool {
	ab, err1 := json.Marshal(a)
	bb, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && bytes.Equal(ab, bb)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, nil
	case string:
		return decimal.NewFromString(t)
	case json.Number:
		return decimal.NewFromString(t.String())
	default:
		return decimal.Zero, errors.Errorf("unexpected %T", v)
	}
}
